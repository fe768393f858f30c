package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/beancount-cli/pkg/beancount"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/converter"
)

var commodityCreateOpts struct {
	payload payloadOptions
	name    string
	date    string
}

// commodityCmd groups commodity commands.
var commodityCmd = &cobra.Command{
	Use:   "commodity",
	Short: "Manage commodities",
}

// commodityCreateCmd represents the commodity create command.
var commodityCreateCmd = &cobra.Command{
	Use:   "create [currency] [ledger-file]",
	Short: "Declare new commodities",
	Long: `Declare a commodity, or a list of commodities given as JSON or YAML.

Example:
  bean commodity create BTC --name Bitcoin
  bean commodity create --json '[{"currency": "ETH", "name": "Ether"}]'`,
	Args: cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(runCommodityCreate(streamsOf(cmd), args), "failed to create commodities")
	},
}

func init() {
	commodityCreateOpts.payload.register(commodityCreateCmd)
	commodityCreateCmd.Flags().StringVarP(&commodityCreateOpts.name, "name", "n", "", "display name")
	commodityCreateCmd.Flags().StringVarP(&commodityCreateOpts.date, "date", "d", "", "declaration date (YYYY-MM-DD, default today)")

	commodityCmd.AddCommand(commodityCreateCmd)
}

func runCommodityCreate(s streams, args []string) error {
	if commodityCreateOpts.payload.given() {
		records, err := commodityCreateOpts.payload.decode(s.in, beancount.KindCommodity, false)
		if err != nil {
			return err
		}
		return insertRecords(s, args, records, insertRequest{operation: "commodity create"})
	}

	if len(args) == 0 {
		return errors.New("currency argument is required if not using --json or --from-file")
	}
	commodity, err := converter.NewConverter(time.Now).Commodity(converter.CommodityPayload{
		Currency: args[0],
		Name:     commodityCreateOpts.name,
		Date:     commodityCreateOpts.date,
	})
	if err != nil {
		return err
	}
	return insertRecords(s, args[1:], []beancount.Record{commodity}, insertRequest{operation: "commodity create"})
}
