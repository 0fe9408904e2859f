package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/coreblock/node/foundation/wire"
)

// genesisCmd represents the genesis command
var genesisCmd = &cobra.Command{
	Use:   "genesis",
	Short: "Print the node's genesis block.",
	Run: func(cmd *cobra.Command, args []string) {
		single, list, err := query(wire.BlockQueryGenesis())
		if err != nil {
			log.Fatal(err)
		}
		if err := printBlocks(single, list); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(genesisCmd)
}
