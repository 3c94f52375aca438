package simulate

import "os"

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Checkpoint Traffic Simulator
============================

Generates synthetic checkpoint readings, posts them to the prediction
service and checks that every accepted reading was recorded.

Usage:
  go run ./cmd/checkpoint-sim [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:5000")
  -readings int
        Number of readings to submit (default 200)
  -workers int
        Number of concurrent submitters (default 8)
  -checkpoints int
        Number of distinct checkpoints (default 5)
  -timeout duration
        HTTP request timeout (default 10s)
  -retries int
        Retries per request on transport errors (default 1)
  -seed uint
        Generator seed, 0 picks one from the clock
  -output string
        Write generated readings to this JSON file
  -log-level string
        debug, info, warn or error (default "info")
  -help
        Show this help message

Environment:
  Values in a .env file in the working directory are loaded first.
  CHECKPOINT_SIM_URL overrides the default base URL.

Examples:
  go run ./cmd/checkpoint-sim -readings 1000 -workers 16
  go run ./cmd/checkpoint-sim -url http://localhost:8080 -output out/readings.json
`)
}
