package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/iacguard/internal/config"
	"github.com/pankaj-dahiya-devops/iacguard/internal/providers/aws/common"
	kube "github.com/pankaj-dahiya-devops/iacguard/internal/providers/kubernetes"
	"github.com/pankaj-dahiya-devops/iacguard/internal/rulepacks"
	"github.com/pankaj-dahiya-devops/iacguard/internal/rules"
	"github.com/pankaj-dahiya-devops/iacguard/internal/version"
)

// deps holds the external collaborators of every command. Tests replace them
// with fakes; newRootCmd wires the real ones.
type deps struct {
	aws  common.AWSClientProvider
	kube func(kubeconfig string) kube.KubeClientProvider
}

func defaultDeps() deps {
	return deps{
		aws:  common.NewDefaultAWSClientProvider(),
		kube: newKubeProvider,
	}
}

func newKubeProvider(path string) kube.KubeClientProvider {
	return kube.NewDefaultKubeClientProvider(path)
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(defaultDeps())
}

func newRootCmdWith(d deps) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "iacguard",
		Short:         "Static policy and secret scanner for infrastructure-as-code",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/iacguard/config.yaml)")

	loadConfig := func() (*config.Config, error) {
		return config.NewLoader(configPath).Load()
	}

	root.AddCommand(newScanCmd(d, loadConfig))
	root.AddCommand(newRulesCmd())
	root.AddCommand(newDoctorCmd(d, loadConfig))
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
		},
	}
}

// ruleInfo is the JSON shape printed by iacguard rules --format json.
type ruleInfo struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Severity      string   `json:"severity"`
	ResourceTypes []string `json:"resource_types"`
}

func newRulesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the built-in rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printRules(cmd.OutOrStdout(), rulepacks.DefaultRegistry(), format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", `Output format: "table" or "json"`)
	return cmd
}

func printRules(w io.Writer, reg rules.RuleRegistry, format string) error {
	all := reg.All()
	infos := make([]ruleInfo, 0, len(all))
	for _, r := range all {
		types := r.ResourceTypes()
		if types == nil {
			types = []string{}
		}
		infos = append(infos, ruleInfo{
			ID:            r.ID(),
			Title:         r.Title(),
			Severity:      string(r.Severity()),
			ResourceTypes: types,
		})
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	case "table", "":
	default:
		return fmt.Errorf("invalid format %q; valid values: table, json", format)
	}

	fmt.Fprintf(w, "%-34s  %-10s  %-50s  %s\n", "ID", "SEVERITY", "TITLE", "RESOURCE TYPES")
	fmt.Fprintln(w, strings.Repeat("-", 130))
	for _, r := range infos {
		types := strings.Join(r.ResourceTypes, ", ")
		if types == "" {
			types = "*"
		}
		fmt.Fprintf(w, "%-34s  %-10s  %-50s  %s\n", r.ID, r.Severity, r.Title, types)
	}
	return nil
}
