package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/inference-sim/collision-risk/risk/scene"
	"github.com/inference-sim/collision-risk/risk/situation"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var classesScenario string

var classesCmd = &cobra.Command{
	Use:   "classes",
	Short: "Describe the situation classes of Town03 or of a scenario road",
	Run: func(cmd *cobra.Command, args []string) {
		classes := situation.Town03()
		if classesScenario != "" {
			sc, err := scene.LoadScenario(classesScenario)
			if err != nil {
				logrus.Fatalf("Failed to load scenario: %v", err)
			}
			class, err := situation.FromRoad("road", sc.Road)
			if err != nil {
				logrus.Fatalf("Invalid scenario road: %v", err)
			}
			classes = []situation.Class{class}
		}
		if err := describeClasses(os.Stdout, classes); err != nil {
			logrus.Fatalf("Invalid situation classes: %v", err)
		}
	},
}

// describeClasses validates classes as a registry and prints one line each.
func describeClasses(w io.Writer, classes []situation.Class) error {
	reg, err := situation.NewRegistry(classes)
	if err != nil {
		return err
	}
	for _, c := range reg.Classes() {
		fmt.Fprintln(w, c.Describe())
	}
	return nil
}

func init() {
	classesCmd.Flags().StringVar(&classesScenario, "scenario", "", "Describe the road of this scenario instead of Town03")

	rootCmd.AddCommand(classesCmd)
}
