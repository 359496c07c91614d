package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Show details of a resource",
}

var describeAssetCmd = &cobra.Command{
	Use:   "asset <id>",
	Short: "Show asset details",
	Args:  cobra.ExactArgs(1),
	RunE:  runDescribeAsset,
}

var describeAssetGroupCmd = &cobra.Command{
	Use:     "asset-group <id>",
	Aliases: []string{"group"},
	Short:   "Show asset group details",
	Args:    cobra.ExactArgs(1),
	RunE:    runDescribeAssetGroup,
}

var describeRuleCmd = &cobra.Command{
	Use:   "rule <id>",
	Short: "Show alerting rule details",
	Args:  cobra.ExactArgs(1),
	RunE:  runDescribeRule,
}

func init() {
	describeCmd.AddCommand(describeAssetCmd)
	describeCmd.AddCommand(describeAssetGroupCmd)
	describeCmd.AddCommand(describeRuleCmd)
}

// describeResource fetches one resource and prints it in the chosen
// format. Table output falls back to indented JSON since detail views
// are nested.
func describeResource(path string) error {
	client := mustClient()

	data, err := client.Get(path)
	if err != nil {
		return err
	}

	var resource map[string]any
	if err := unmarshal(data, &resource); err != nil {
		return err
	}

	switch flagOutput {
	case outputYAML:
		printYAML(resource)
	default:
		out, err := json.MarshalIndent(resource, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal response: %w", err)
		}
		fmt.Println(string(out))
	}
	return nil
}

func runDescribeAsset(cmd *cobra.Command, args []string) error {
	return describeResource("/api/v1/assets/" + args[0])
}

func runDescribeAssetGroup(cmd *cobra.Command, args []string) error {
	return describeResource("/api/v1/asset-groups/" + args[0])
}

func runDescribeRule(cmd *cobra.Command, args []string) error {
	return describeResource("/api/v1/rules/" + args[0])
}
