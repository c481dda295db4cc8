// Package tui hosts the timeline widget in a terminal.
//
// Model owns one timeline.State and is the only thing that advances it:
// every input becomes a timeline.Event, and the effects the reducer hands
// back become tea.Cmd values (fetches) or log lines (diagnostics).
//
// Component architecture:
//
//	model.go    root model, message routing, Init/Update/View
//	watch.go    theme subscription bridged into the update loop
//	settle.go   headless driver used by the HTTP host and the CLI
//	theme.go    light and dark styles derived from the widget tokens
//	header.go   top bar and status line with key hints
//	timeline.go item rendering for the three orientations
//	preview.go  image preview modal
//	helpers.go  width-aware truncation and small math helpers
package tui
