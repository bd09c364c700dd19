// Package config builds the immutable Inputs value the restore step runs with.
//
// Inputs come from three layers, later layers winning:
//   - an optional YAML file, checked against an embedded CUE schema
//   - an optional .env file (variables already in the process env win)
//   - INPUT_<NAME> environment variables, named the way GitHub Actions
//     exposes step inputs (upper-cased, hyphens kept)
//
// The assembled value is validated once with struct tags and then passed down
// by value; nothing below the CLI reads the environment for inputs.
package config
