package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/inference-sim/collision-risk/risk/bayes"
	_ "github.com/inference-sim/collision-risk/risk/bayes/rules"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List and validate the built-in maneuver models",
	Run: func(cmd *cobra.Command, args []string) {
		if err := listModels(os.Stdout, bayes.DefaultStore()); err != nil {
			logrus.Fatalf("Model check failed: %v", err)
		}
	},
}

// listModels prints one line per model in store. It fails on the first model
// that does not load or has no evidence rules.
func listModels(w io.Writer, store *bayes.Store) error {
	names, err := store.Names()
	if err != nil {
		return err
	}
	for _, name := range names {
		net, err := store.Load(name)
		if err != nil {
			return err
		}
		rs, err := bayes.LookupRuleSet(name)
		if err != nil {
			return err
		}
		nodes := make([]string, 0, len(net.Nodes))
		for _, n := range net.Nodes {
			nodes = append(nodes, n.Name)
		}
		fmt.Fprintf(w, "%-20s nodes=%-2d rules=%-2d %s\n", name, len(net.Nodes), len(rs.Rules), strings.Join(nodes, ","))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
