package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

// output writes v to c's stdout. With --jq the JSON form of v is filtered
// and each result printed on its own line; with --json it is printed
// indented; otherwise human is called.
func output(c *cli.Context, v interface{}, human func(w io.Writer)) error {
	return writeOutput(c.App.Writer, v, c.Bool("json"), c.String("jq"), human)
}

func writeOutput(w io.Writer, v interface{}, jsonOut bool, jqExpr string, human func(w io.Writer)) error {
	if jqExpr != "" {
		code, err := compileJQ(jqExpr)
		if err != nil {
			return err
		}
		results, err := runJQ(code, v)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		for _, r := range results {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}

	if jsonOut || human == nil {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	human(w)
	return nil
}

func compileJQ(expr string) (*gojq.Code, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq filter %q: %w", expr, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq filter %q: %w", expr, err)
	}
	return code, nil
}

// runJQ runs code against the JSON form of v. gojq only understands the
// generic JSON types, so v goes through a marshal round trip first.
func runJQ(code *gojq.Code, v interface{}) ([]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal output: %w", err)
	}
	var input interface{}
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("failed to unmarshal output: %w", err)
	}

	var results []interface{}
	iter := code.Run(input)
	for {
		r, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := r.(error); isErr {
			return nil, fmt.Errorf("jq filter failed: %w", err)
		}
		results = append(results, r)
	}
	return results, nil
}

// matchesJQ reports whether the first result of code on v is truthy.
func matchesJQ(code *gojq.Code, v interface{}) bool {
	results, err := runJQ(code, v)
	if err != nil || len(results) == 0 {
		return false
	}
	return isTruthy(results[0])
}

// isTruthy checks if a jq result value is truthy.
// In jq, false and null are falsy, everything else is truthy.
func isTruthy(v interface{}) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}
