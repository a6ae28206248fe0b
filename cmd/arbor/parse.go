package main

import (
	"fmt"
	"os"
	"time"

	"arbor/internal/engine/sitter"
	"arbor/internal/input"
	"arbor/internal/language"
	"arbor/internal/parser"
	"arbor/internal/position"
	"arbor/internal/tree"
	"arbor/languages"

	"github.com/spf13/cobra"
)

var (
	langName      string
	useChunks     bool
	timeoutMicros uint64
	chunkSize     int
)

var parseCmd = &cobra.Command{
	Use:   "parse FILE",
	Short: "Parse a file once and print the root span",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().StringVar(&langName, "language", "", "grammar to use (default: by file extension)")
	parseCmd.Flags().BoolVar(&useChunks, "chunks", false, "feed the file through the chunk protocol")
	parseCmd.Flags().Uint64Var(&timeoutMicros, "timeout-micros", 0, "per-parse timeout hint in microseconds")
	parseCmd.Flags().IntVar(&chunkSize, "chunk-size", 4096, "fragment size for --chunks")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	file := args[0]
	content, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	var lang language.Language
	if langName != "" {
		lang, err = languages.ByName(langName)
		if err != nil {
			return err
		}
	} else {
		var ok bool
		lang, ok = languages.ByFilename(file)
		if !ok {
			return fmt.Errorf("cannot determine language for %s, pass --language", file)
		}
	}

	p := parser.New(sitter.New())
	defer p.Close()
	if err := p.SetLanguage(lang); err != nil {
		return err
	}
	if timeoutMicros > 0 {
		p.SetTimeoutMicros(timeoutMicros)
	}

	start := time.Now()
	var handle *tree.Handle
	if useChunks {
		handle, err = p.ParseChunks(cmd.Context(), fileSource(content), nil)
	} else {
		handle, err = p.ParseString(cmd.Context(), string(content), nil)
	}
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	defer handle.Release()

	root, err := handle.RootRange()
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s, %d bytes, root %d:%d-%d:%d, parsed in %s\n",
		file, lang.Name(), len(content),
		root.Start.Line, root.Start.Column, root.End.Line, root.End.Column,
		elapsed.Round(time.Microsecond))
	return nil
}

func fileSource(content []byte) input.Source {
	return input.SourceFunc(func(pos position.BytePos, pt position.Point) (string, error) {
		off := int(pos.Offset())
		if off >= len(content) {
			return "", nil
		}
		end := off + chunkSize
		if end > len(content) {
			end = len(content)
		}
		return string(content[off:end]), nil
	})
}
