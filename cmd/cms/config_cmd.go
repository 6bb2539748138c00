package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/tendant/simple-cms/pkg/simplecms/configschema"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and validate config objects",
}

var configCheckCmd = &cobra.Command{
	Use:   "check <name> <file.yml>",
	Short: "Check a YAML config object against its schema",
	Long: `Check loads the system schema plus SCHEMA_DIRS and reports every key of
the config object that does not match its schema.

Example:
  cms config check system.site sync/system.site.yml`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigCheck,
}

var configGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print a stored config object as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configListCmd = &cobra.Command{
	Use:   "list [prefix]",
	Short: "List stored config object names",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigList,
}

func init() {
	configCmd.AddCommand(configCheckCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configListCmd)
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	name, path := args[0], args[1]

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var data map[string]any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	schemas, err := serverCfg.BuildSchemaRegistry(logger)
	if err != nil {
		return err
	}
	res := configschema.NewChecker(schemas).Check(name, data)
	return printCheckResult(cmd.OutOrStdout(), name, res)
}

func printCheckResult(w io.Writer, name string, res configschema.Result) error {
	switch res.Status {
	case configschema.NoSchema:
		fmt.Fprintf(w, "%s: no schema\n", name)
		return nil
	case configschema.Valid:
		fmt.Fprintf(w, "%s: valid\n", name)
		return nil
	}

	keys := make([]string, 0, len(res.Errors))
	for k := range res.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%s\n", k, res.Errors[k])
	}
	return fmt.Errorf("%s: %d schema errors", name, len(keys))
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	svc, err := serverCfg.BuildServices(cmd.Context(), logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	data, err := svc.Config.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get %s: %w", args[0], err)
	}
	output, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(output))
	return nil
}

func runConfigList(cmd *cobra.Command, args []string) error {
	prefix := ""
	if len(args) == 1 {
		prefix = args[0]
	}
	svc, err := serverCfg.BuildServices(cmd.Context(), logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	names, err := svc.Config.ListAll(cmd.Context(), prefix)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}
