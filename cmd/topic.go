package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/etnz/folio/docs"
	"github.com/google/subcommands"
)

type topicCmd struct {
	raw bool
}

func (*topicCmd) Name() string     { return "topic" }
func (*topicCmd) Synopsis() string { return "show a documentation topic" }
func (*topicCmd) Usage() string {
	topics, _ := docs.AllTopics()
	return fmt.Sprintf(`pfl topic <name> [-md]

  Shows a documentation topic. Available: %s, or "*" for all.
`, strings.Join(topics, ", "))
}

func (p *topicCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&p.raw, "md", false, "Print raw markdown instead of rendering it.")
}

func (p *topicCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Println(p.Usage())
		return subcommands.ExitUsageError
	}
	content, err := docs.GetTopics(f.Args()...)
	if err != nil {
		return fail(err)
	}
	return render(content, p.raw)
}
