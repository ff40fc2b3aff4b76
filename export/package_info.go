// Package export writes merged reports in forms meant for people and for other tools: JSON,
// a colored console tree, a summary table and JUnit XML.
package export
