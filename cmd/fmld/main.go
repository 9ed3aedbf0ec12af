/*
Fmld converts between the indented dictionary text format and its relational
sqlite projection.

It reads an input file (.txt or .db, detected by extension), runs Semantic
Repair on the resulting database, optionally validates entries and finalizes
publication note ids, optionally checks that rendering and re-ingesting the
result is lossless, and writes whichever of --db/--txt output files were
requested.

Usage:

	fmld [flags] INPUT_FILE

The flags are:

	-v, --version
		Give the current version of fmld and then exit.

	-d, --db FILE
		Write the converted database out as a sqlite file.

	-t, --txt FILE
		Write the converted database out as dictionary text.

	-l, --limit-to-word WORD
		Limit conversion of a .txt input to the entries for the given word,
		dropping any cross-reference that would escape the limited set (with
		a diagnostic). A .db input is converted whole.

	--indent-with-tabs
		Use a tab character instead of a single space as the text format's
		indentation unit.

	--round-trip-check FILE
		Render the database to text, re-ingest that text, and render it
		again, failing if the two renderings disagree. On disagreement, the
		second rendering is written to FILE.

	--finalize-with-meta FILE
		Reassign publication note ids using FILE as the external meta
		sidecar (read before finalizing, overwritten after with updated
		population counts).

Entries with a fmld.toml file in the current directory are used to supply
defaults for --indent-with-tabs and --round-trip-check when the
corresponding flag is not given explicitly.
*/
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/jiong3/fmld"
	"github.com/jiong3/fmld/internal/dictdb"
	"github.com/jiong3/fmld/internal/fmlconfig"
	"github.com/jiong3/fmld/internal/fmlreport"
	"github.com/jiong3/fmld/internal/version"
)

const (
	// ExitSuccess indicates every requested stage completed without error.
	ExitSuccess = iota

	// ExitConversionError indicates the input was read but one or more
	// stages (ingest, validation, round-trip check) reported diagnostics.
	ExitConversionError

	// ExitInitError indicates the program could not even begin conversion:
	// a bad flag, an unreadable input file, or an unwritable output path.
	ExitInitError
)

var (
	returnCode int = ExitSuccess

	flagVersion      *bool   = pflag.BoolP("version", "v", false, "Gives the version info")
	dbOut            *string = pflag.StringP("db", "d", "", "Write the converted database out as a sqlite file")
	txtOut           *string = pflag.StringP("txt", "t", "", "Write the converted database out as dictionary text")
	limitToWord      *string = pflag.StringP("limit-to-word", "l", "", "Limit conversion of a .txt input to one word's entries")
	indentWithTabs   *bool   = pflag.Bool("indent-with-tabs", false, "Use a tab character for indentation instead of a single space")
	roundTripCheck   *string = pflag.String("round-trip-check", "", "Check that rendering is lossless, writing the second pass to the given file on failure")
	finalizeWithMeta *string = pflag.String("finalize-with-meta", "", "Reassign publication note ids using the given JSON meta sidecar")
)

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			panic(fmt.Sprintf("unrecoverable panic occurred: %v", panicErr))
		} else {
			os.Exit(returnCode)
		}
	}()

	pflag.Parse()

	if *flagVersion {
		fmt.Printf("%s\n", version.Current)
		return
	}

	if pflag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "ERROR: exactly one input file is required")
		returnCode = ExitInitError
		return
	}
	inputFile := pflag.Arg(0)

	cfg, err := fmlconfig.Load("fmld.toml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: loading fmld.toml: %s\n", err.Error())
		returnCode = ExitInitError
		return
	}

	useTabs := *indentWithTabs
	if !pflag.CommandLine.Changed("indent-with-tabs") {
		useTabs = cfg.IndentWithTabs
	}
	indentChar := byte(' ')
	if useTabs {
		indentChar = '\t'
	}

	doRoundTripCheck := *roundTripCheck != ""
	if !pflag.CommandLine.Changed("round-trip-check") {
		doRoundTripCheck = cfg.RoundTripCheck
	}

	conv, err := readInput(inputFile, *limitToWord)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitInitError
		return
	}
	defer conv.Close()

	statusOK := true

	if conv.Diagnostics().HasErrors() {
		statusOK = false
		fmt.Fprintln(os.Stderr, conv.Diagnostics().Error())
	}

	validateDiags, err := conv.Validate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitInitError
		return
	}
	if validateDiags.HasErrors() {
		statusOK = false
		fmt.Fprintln(os.Stderr, fmlreport.Diagnostics(validateDiags))
	}

	if *finalizeWithMeta != "" {
		if err := runFinalize(conv, *finalizeWithMeta); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: finalizing: %s\n", err.Error())
			returnCode = ExitInitError
			return
		}
	}

	if doRoundTripCheck {
		first, second, ok, err := conv.RoundTripCheck(indentChar)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: round-trip check: %s\n", err.Error())
			returnCode = ExitInitError
			return
		}
		if ok {
			fmt.Fprintln(os.Stderr, "Round trip check ok!")
		} else {
			statusOK = false
			fmt.Fprintln(os.Stderr, "Round trip check failed!")
			if diff, diffErr := fmlreport.RoundTripDiff(first, second); diffErr == nil {
				fmt.Fprintln(os.Stderr, diff)
			}
			if *roundTripCheck != "" {
				if err := os.WriteFile(*roundTripCheck, []byte(second), 0644); err != nil {
					fmt.Fprintf(os.Stderr, "ERROR: writing round-trip-check output: %s\n", err.Error())
					returnCode = ExitInitError
					return
				}
			}
		}
	}

	if err := writeOutputs(conv, inputFile, *txtOut, *dbOut, indentChar); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitInitError
		return
	}

	if !statusOK {
		returnCode = ExitConversionError
	}
}

// readInput dispatches to fmld.Open for a .db source (copied into memory,
// never mutated) or fmld.New for a .txt source.
func readInput(path, limitToWord string) (*fmld.Converter, error) {
	switch filepath.Ext(path) {
	case ".db":
		return fmld.Open(path)
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("could not open txt file %s: %w", path, err)
		}
		return fmld.New(string(data), limitToWord)
	default:
		return nil, fmt.Errorf("invalid input file %s: must end in .txt or .db", path)
	}
}

// runFinalize reads the external meta sidecar (if present), finalizes note
// ids against it, and writes the refreshed population counts back out.
func runFinalize(conv *fmld.Converter, metaPath string) error {
	meta := &dictdb.Meta{}
	if data, err := os.ReadFile(metaPath); err == nil {
		if err := json.Unmarshal(data, meta); err != nil {
			return fmt.Errorf("parsing %s: %w", metaPath, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", metaPath, err)
	}

	if err := conv.Finalize(meta); err != nil {
		return err
	}

	out, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(metaPath, out, 0644)
}

// writeOutputs writes the requested --txt and --db outputs, refusing to
// overwrite the input file.
func writeOutputs(conv *fmld.Converter, inputFile, txtPath, dbPath string, indentChar byte) error {
	if txtPath != "" {
		if txtPath == inputFile {
			return fmt.Errorf("input file and output file must be different")
		}
		text, err := conv.Render(indentChar)
		if err != nil {
			return err
		}
		if err := os.WriteFile(txtPath, []byte(text), 0644); err != nil {
			return fmt.Errorf("could not create output file %s: %w", txtPath, err)
		}
	}

	if dbPath != "" {
		if dbPath == inputFile {
			return fmt.Errorf("input file and output file must be different")
		}
		if err := dictdb.CopyOut(conv.DB(), dbPath); err != nil {
			return fmt.Errorf("could not create output file %s: %w", dbPath, err)
		}
	}

	return nil
}
