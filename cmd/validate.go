package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/svnhook/svnhook/internal/logger"
	"github.com/svnhook/svnhook/internal/rules"
)

var validateCmd = &cobra.Command{
	Use:   "validate RULEFILE",
	Short: "Validate a rule file and show the compiled tree",
	Long: `Validate parses and compiles a hook rule file and displays the resulting
filter/action tree.

This is useful for:
- Checking that your rule file syntax is correct
- Seeing what regex conditions will actually be used
- Debugging filter matching issues`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	logger.Init(logger.Options{Verbose: verbose})

	root, err := rules.Load(args[0])
	if err != nil {
		return err
	}

	fmt.Println("Rule file valid!")
	fmt.Println()
	printNode(root, 0)
	return nil
}

func printNode(n *rules.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Printf("%s%s", indent, n.Kind)
	if n.MatchFirst {
		fmt.Print(" matchFirst")
	}
	fmt.Println()
	for _, c := range n.Conds {
		sense := ""
		if !c.Sense {
			sense = " sense=false"
		}
		fmt.Printf("%s  %s%s: %s\n", indent, c.Role, sense, c.Pattern)
	}
	for _, child := range n.Children {
		printNode(child, depth+1)
	}
}
