// main.go
//
// Entry point of the collision-risk CLI; commands live in cmd/ (run, models, classes).

package main

import (
	"github.com/inference-sim/collision-risk/cmd"
)

func main() {
	cmd.Execute()
}
