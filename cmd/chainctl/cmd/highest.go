package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/coreblock/node/foundation/wire"
)

// highestCmd represents the highest command
var highestCmd = &cobra.Command{
	Use:   "highest",
	Short: "Print the node's chain head.",
	Run: func(cmd *cobra.Command, args []string) {
		single, list, err := query(wire.BlockQueryHighest())
		if err != nil {
			log.Fatal(err)
		}
		if err := printBlocks(single, list); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(highestCmd)
}
