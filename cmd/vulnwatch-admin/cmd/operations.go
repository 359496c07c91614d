package cmd

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

var regradeCmd = &cobra.Command{
	Use:   "regrade <asset-id>",
	Short: "Recompute and persist the risk grade of an asset",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegrade,
}

var runRuleCmd = &cobra.Command{
	Use:   "run-rule <rule-id>",
	Short: "Fire a rule on demand across its scope",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunRule,
}

var resetCountersCmd = &cobra.Command{
	Use:   "reset-counters <rule-id>",
	Short: "Zero the match and failure counters of a rule",
	Args:  cobra.ExactArgs(1),
	RunE:  runResetCounters,
}

var topRiskCmd = &cobra.Command{
	Use:   "top-risk",
	Short: "List the highest-risk assets",
	RunE:  runTopRisk,
}

func init() {
	regradeCmd.Flags().Int("history-days", 0, "Compute the grade as of N days ago without persisting it")
	topRiskCmd.Flags().Int("limit", 10, "Number of assets to show")
}

func runRegrade(cmd *cobra.Command, args []string) error {
	client := mustClient()

	path := "/api/v1/assets/" + args[0] + "/risk-grade"
	if days, _ := cmd.Flags().GetInt("history-days"); days > 0 {
		params := url.Values{}
		params.Set("history_days", strconv.Itoa(days))
		path += "?" + params.Encode()
	}

	data, err := client.Get(path)
	if err != nil {
		return err
	}

	var result struct {
		AssetID   string `json:"asset_id"`
		RiskLevel struct {
			Grade string `json:"grade"`
		} `json:"risk_level"`
		HistoryDays *int `json:"history_days"`
	}
	if err := unmarshal(data, &result); err != nil {
		return err
	}

	switch flagOutput {
	case outputJSON:
		printJSON(result)
	case outputYAML:
		printYAML(result)
	default:
		if result.HistoryDays != nil {
			fmt.Printf("Asset %s graded %s as of %d days ago (not persisted)\n",
				result.AssetID, result.RiskLevel.Grade, *result.HistoryDays)
		} else {
			fmt.Printf("Asset %s graded %s\n", result.AssetID, result.RiskLevel.Grade)
		}
	}
	return nil
}

func runRunRule(cmd *cobra.Command, args []string) error {
	client := mustClient()

	data, err := client.Post("/api/v1/rules/"+args[0]+"/run", nil)
	if err != nil {
		return err
	}

	var result struct {
		RuleID  string `json:"rule_id"`
		Matches int    `json:"matches"`
	}
	if err := unmarshal(data, &result); err != nil {
		return err
	}

	fmt.Printf("Rule %s fired: %d matches\n", result.RuleID, result.Matches)
	return nil
}

func runResetCounters(cmd *cobra.Command, args []string) error {
	client := mustClient()

	if _, err := client.Post("/api/v1/rules/"+args[0]+"/reset-counters", nil); err != nil {
		return err
	}
	fmt.Printf("Counters of rule %s reset\n", args[0])
	return nil
}

func runTopRisk(cmd *cobra.Command, args []string) error {
	client := mustClient()

	limit, _ := cmd.Flags().GetInt("limit")
	data, err := client.Get("/api/v1/assets/top-risk?limit=" + strconv.Itoa(limit))
	if err != nil {
		return err
	}

	var result struct {
		Data []assetItem `json:"data"`
	}
	if err := unmarshal(data, &result); err != nil {
		return err
	}

	switch flagOutput {
	case outputJSON:
		printJSON(result)
	case outputYAML:
		printYAML(result)
	default:
		t := newTable("ID", "VALUE", "TYPE", "CRITICITY", "GRADE", "SCORE")
		for _, a := range result.Data {
			t.AddRow(a.ID, a.Value, a.Type, a.Criticity, a.RiskLevel.Grade, strconv.Itoa(a.RiskScore))
		}
		t.Flush()
	}
	return nil
}
