// Package cli provides shared plumbing for the voxbridge command-line
// tools: kubectl-style context configuration under ~/.voxbridge/, result
// rendering, and terminal styles.
package cli
