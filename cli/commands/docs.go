package commands

import (
	"github.com/spf13/cobra"

	"github.com/heliosql/helio-go/cli/internal/ui"
)

const usageDocs = `# helio

Client tooling for the Helio engine. The CLI manages the database-backed
plugin configuration a cluster reads at runtime.

## Commands

### migrate

Creates or updates the tables a plugin needs. Migrations are forward-only,
checksummed and recorded in ` + "`helio_schema_migrations`" + `; a migration whose SQL
changed after being applied is refused.

    helio migrate --url mysql://user:pw@tcp(host:3306)/helio
    helio migrate status --url sqlite://./helio.db

### validate

Checks a file-manager resource groups config: JSON shape, selector regexes
and that every selector references a defined group.

    helio validate resource-groups.json
    helio validate resource-groups.json --watch

### init

Interactive setup. Writes ` + "`~/.config/helio/.helio.yaml`" + `. Every setting can
also come from the environment with the ` + "`HELIO_`" + ` prefix, or from ` + "`.env`" + ` /
` + "`.env.local`" + ` files in the working directory.

## Resource groups

Selectors are matched in descending priority order. A selector may constrain
the user (regex), the source (regex) and the query type (exact). With the
exact-match table enabled, an exact source and query type pair bypasses the
regex selectors entirely.

## Event listeners

The ` + "`mysql`" + ` listener persists one row per finished query. The ` + "`http`" + `
listener buffers events and posts JSON batches, flushing when the batch
fills or on the flush interval, and drains its buffer on shutdown.
`

// NewDocsCommand creates the docs command.
func NewDocsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "docs",
		Short: "Show usage documentation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ui.PrintMarkdown(usageDocs)
		},
	}
}
