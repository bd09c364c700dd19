// Package actions talks to the CI runner the way a GitHub Actions step does.
//
// Outputs and state are appended to the files named by GITHUB_OUTPUT and
// GITHUB_STATE using the heredoc form
//
//	name<<ghadelimiter_<uuid>
//	value
//	ghadelimiter_<uuid>
//
// and fall back to ::set-output / ::save-state workflow commands on stdout
// when those variables are unset. The failure signal is an ::error:: command.
//
// Appends take an advisory lock on the target file, so concurrent steps
// sharing a runner never interleave records.
package actions
