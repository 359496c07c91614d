package cmd

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "List resources",
}

var getAssetsCmd = &cobra.Command{
	Use:     "assets",
	Aliases: []string{"asset"},
	Short:   "List assets",
	RunE:    runGetAssets,
}

var getAssetGroupsCmd = &cobra.Command{
	Use:     "asset-groups",
	Aliases: []string{"asset-group", "groups"},
	Short:   "List asset groups",
	RunE:    runGetAssetGroups,
}

var getRulesCmd = &cobra.Command{
	Use:     "rules",
	Aliases: []string{"rule"},
	Short:   "List alerting rules",
	RunE:    runGetRules,
}

var getEventsCmd = &cobra.Command{
	Use:     "events",
	Aliases: []string{"event"},
	Short:   "List event log entries",
	RunE:    runGetEvents,
}

func init() {
	// assets flags
	getAssetsCmd.Flags().String("search", "", "Search by value, name or description")
	getAssetsCmd.Flags().String("types", "", "Filter by asset types (comma-separated)")
	getAssetsCmd.Flags().String("criticities", "", "Filter by criticities (comma-separated)")
	getAssetsCmd.Flags().Int("page", 1, "Page number")
	getAssetsCmd.Flags().Int("per-page", 20, "Items per page")

	// asset-groups flags
	getAssetGroupsCmd.Flags().Int("page", 1, "Page number")
	getAssetGroupsCmd.Flags().Int("per-page", 20, "Items per page")

	// rules flags
	getRulesCmd.Flags().String("scope", "", "Filter by scope (asset, finding, scan)")
	getRulesCmd.Flags().String("trigger", "", "Filter by trigger (ondemand, auto, periodic)")
	getRulesCmd.Flags().String("enabled", "", "Filter by enabled status (true/false)")
	getRulesCmd.Flags().Int("page", 1, "Page number")
	getRulesCmd.Flags().Int("per-page", 20, "Items per page")

	// events flags
	getEventsCmd.Flags().Int("page", 1, "Page number")
	getEventsCmd.Flags().Int("per-page", 20, "Items per page")

	getCmd.AddCommand(getAssetsCmd)
	getCmd.AddCommand(getAssetGroupsCmd)
	getCmd.AddCommand(getRulesCmd)
	getCmd.AddCommand(getEventsCmd)
}

// listEnvelope mirrors the API's paginated list response.
type listEnvelope[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
}

type assetItem struct {
	ID        string `json:"id"`
	Value     string `json:"value"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Criticity string `json:"criticity"`
	RiskLevel struct {
		Grade string `json:"grade"`
	} `json:"risk_level"`
	RiskScore int `json:"risk_score"`
}

type assetGroupItem struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Criticity string   `json:"criticity"`
	AssetIDs  []string `json:"asset_ids"`
	RiskLevel struct {
		Grade string `json:"grade"`
	} `json:"risk_level"`
}

type ruleItem struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Scope      string `json:"scope"`
	ScopeAttr  string `json:"scope_attr"`
	Operator   string `json:"operator"`
	Value      string `json:"value"`
	Target     string `json:"target"`
	Trigger    string `json:"trigger"`
	Enabled    bool   `json:"enabled"`
	NbMatches  int64  `json:"nb_matches"`
	NbFailures int64  `json:"nb_failures"`
}

type eventItem struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Severity  string `json:"severity"`
	CreatedAt string `json:"created_at"`
}

func pageParams(cmd *cobra.Command) url.Values {
	params := url.Values{}
	if v, _ := cmd.Flags().GetInt("page"); v > 0 {
		params.Set("page", strconv.Itoa(v))
	}
	if v, _ := cmd.Flags().GetInt("per-page"); v > 0 {
		params.Set("per_page", strconv.Itoa(v))
	}
	return params
}

func runGetAssets(cmd *cobra.Command, args []string) error {
	client := mustClient()

	params := pageParams(cmd)
	if v, _ := cmd.Flags().GetString("search"); v != "" {
		params.Set("search", v)
	}
	if v, _ := cmd.Flags().GetString("types"); v != "" {
		params.Set("types", v)
	}
	if v, _ := cmd.Flags().GetString("criticities"); v != "" {
		params.Set("criticities", v)
	}

	data, err := client.Get("/api/v1/assets?" + params.Encode())
	if err != nil {
		return err
	}

	var result listEnvelope[assetItem]
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
		printPagination(result.Total, result.Page, result.PerPage, result.TotalPages)
	}
	return nil
}

func runGetAssetGroups(cmd *cobra.Command, args []string) error {
	client := mustClient()

	data, err := client.Get("/api/v1/asset-groups?" + pageParams(cmd).Encode())
	if err != nil {
		return err
	}

	var result listEnvelope[assetGroupItem]
	if err := unmarshal(data, &result); err != nil {
		return err
	}

	switch flagOutput {
	case outputJSON:
		printJSON(result)
	case outputYAML:
		printYAML(result)
	default:
		t := newTable("ID", "NAME", "CRITICITY", "ASSETS", "GRADE")
		for _, g := range result.Data {
			t.AddRow(g.ID, g.Name, g.Criticity, strconv.Itoa(len(g.AssetIDs)), g.RiskLevel.Grade)
		}
		t.Flush()
		printPagination(result.Total, result.Page, result.PerPage, result.TotalPages)
	}
	return nil
}

func runGetRules(cmd *cobra.Command, args []string) error {
	client := mustClient()

	params := pageParams(cmd)
	if v, _ := cmd.Flags().GetString("scope"); v != "" {
		params.Set("scope", v)
	}
	if v, _ := cmd.Flags().GetString("trigger"); v != "" {
		params.Set("trigger", v)
	}
	if v, _ := cmd.Flags().GetString("enabled"); v != "" {
		params.Set("enabled", v)
	}

	data, err := client.Get("/api/v1/rules?" + params.Encode())
	if err != nil {
		return err
	}

	var result listEnvelope[ruleItem]
	if err := unmarshal(data, &result); err != nil {
		return err
	}

	switch flagOutput {
	case outputJSON:
		printJSON(result)
	case outputYAML:
		printYAML(result)
	default:
		t := newTable("ID", "TITLE", "SCOPE", "CONDITION", "TARGET", "TRIGGER", "ENABLED", "MATCHES", "FAILURES")
		for _, r := range result.Data {
			cond := fmt.Sprintf("%s %s %q", r.ScopeAttr, r.Operator, r.Value)
			t.AddRow(r.ID, r.Title, r.Scope, cond, r.Target, r.Trigger,
				boolToStr(r.Enabled),
				strconv.FormatInt(r.NbMatches, 10),
				strconv.FormatInt(r.NbFailures, 10))
		}
		t.Flush()
		printPagination(result.Total, result.Page, result.PerPage, result.TotalPages)
	}
	return nil
}

func runGetEvents(cmd *cobra.Command, args []string) error {
	client := mustClient()

	data, err := client.Get("/api/v1/events?" + pageParams(cmd).Encode())
	if err != nil {
		return err
	}

	var result listEnvelope[eventItem]
	if err := unmarshal(data, &result); err != nil {
		return err
	}

	switch flagOutput {
	case outputJSON:
		printJSON(result)
	case outputYAML:
		printYAML(result)
	default:
		t := newTable("CREATED", "TYPE", "SEVERITY", "MESSAGE")
		for _, e := range result.Data {
			t.AddRow(e.CreatedAt, e.Type, e.Severity, e.Message)
		}
		t.Flush()
		printPagination(result.Total, result.Page, result.PerPage, result.TotalPages)
	}
	return nil
}
