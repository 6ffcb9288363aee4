// Package types holds the data model shared by the generation pipeline:
// resolved variables, the generation plan and its actions, pipeline stages,
// hook results and the terminal generation result.
package types
