package commands

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dyluth/cantas/internal/events"
	"github.com/dyluth/cantas/internal/models"
	"github.com/dyluth/cantas/internal/printer"
	"github.com/dyluth/cantas/pkg/board"
)

var eventsJSON bool

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List the WebSocket events the server answers",
	Long: `List every "<type>:<verb>" event of the event table, built from the
entity catalog. Events whose handler replaces the generic CRUD behaviour are
marked custom.

No Redis connection is needed.`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().BoolVar(&eventsJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(eventsCmd)
}

type eventInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Verb    string `json:"verb"`
	Handler string `json:"handler"`
}

func runEvents(cmd *cobra.Command, args []string) error {
	// Building the table never touches the store.
	svc := models.NewService(board.NewRepository(nil))
	table, err := events.NewCantasTable(svc)
	if err != nil {
		return err
	}

	custom := make(map[string]bool)
	for _, o := range events.CantasOverrides(svc) {
		custom[events.EventName(models.Type(o.Type), o.Verb)] = true
	}

	infos := make([]eventInfo, 0, table.Len())
	for _, name := range table.Names() {
		typeName, verb, _ := strings.Cut(name, ":")
		handler := "generic"
		if custom[name] {
			handler = "custom"
		}
		infos = append(infos, eventInfo{Name: name, Type: typeName, Verb: verb, Handler: handler})
	}

	if eventsJSON {
		data, err := json.MarshalIndent(infos, "", "  ")
		if err != nil {
			return err
		}
		printer.Info("%s\n", data)
		return nil
	}

	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, []string{info.Name, info.Type, info.Verb, info.Handler})
	}
	return printer.Table([]string{"Event", "Type", "Verb", "Handler"}, rows)
}
