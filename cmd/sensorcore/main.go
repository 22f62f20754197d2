// Command sensorcore ingests the sensor corpus from object storage and
// serves range queries over the ingested measurements.
package main

import (
	"os"

	"sensorcore/cmd/sensorcore/cmd"
)

func main() {
	if err := cmd.NewRoot().Execute(); err != nil {
		os.Exit(1)
	}
}
