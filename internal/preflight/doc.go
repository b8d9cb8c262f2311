// Package preflight provides readiness checks for the directories and the
// decoder worker that bayloe depends on.
//
// The CLI "bayloe check" command runs RunAll and renders the results; the
// convert command runs the directory checks before touching any input.
package preflight
