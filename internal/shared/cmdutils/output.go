package cmdutils

import (
	"encoding/json"
	"fmt"
)

// PrintJSON pretty-prints v to stdout.
func PrintJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(out))
}

// PrintLines prints one item per line, for list-shaped task results.
func PrintLines(items []string) {
	for _, item := range items {
		fmt.Println(item)
	}
}
