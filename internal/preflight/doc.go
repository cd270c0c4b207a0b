// Package preflight provides readiness checks for the external tools,
// directories, and remote services the pipeline depends on.
//
// These checks run in two contexts:
//   - The daemon aggregates them into the /api/health report so operators can
//     see a doomed configuration before submitting work.
//   - The CLI "recap status" command runs the same checks locally when the
//     daemon is unreachable.
//
// Checks gated by a config toggle report as passed when the feature is
// disabled -- a feature that is off cannot block readiness.
package preflight
