// Command swagger2openapi converts a Swagger 2.0 specification (JSON or
// YAML) into an OpenAPI 3.0 JSON document ready for tool generation.
//
// Usage:
//
//	swagger2openapi -in unity_swagger.yaml -out unity_openapi.json
//
// Use "-" for stdin/stdout.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/unity-tools/unity-mcp/internal/swaggerconv"
)

func main() {
	var (
		inPath    = flag.String("in", "-", "Input Swagger 2.0 file (JSON or YAML), or - for stdin")
		outPath   = flag.String("out", "-", "Output OpenAPI 3.0 JSON file, or - for stdout")
		stripHTML = flag.Bool("strip-html", true, "Strip HTML tags from description fields")
		indent    = flag.Bool("indent", true, "Pretty-print the output JSON")
	)
	flag.Parse()

	if err := run(*inPath, *outPath, *stripHTML, *indent); err != nil {
		fmt.Fprintf(os.Stderr, "swagger2openapi: %v\n", err)
		os.Exit(1)
	}
}

func run(inPath, outPath string, stripHTML, indent bool) error {
	input, err := readInput(inPath)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	output, err := swaggerconv.Convert(input, swaggerconv.Options{
		StripHTML: stripHTML,
		Indent:    indent,
	})
	if err != nil {
		return err
	}

	return writeOutput(outPath, append(output, '\n'))
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
