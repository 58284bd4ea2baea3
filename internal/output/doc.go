// Package output prints runctl results to the terminal.
//
// Messages are colored when stdout is a terminal and NO_COLOR is unset.
// Payloads are printed as indented JSON so they can be piped into other tools.
//
// Example usage:
//
//	printer := output.NewPrinter()
//	printer.Success("Run %s submitted", handle.RunID)
//	printer.JSON(out)
package output
