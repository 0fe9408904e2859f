package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/coreblock/node/foundation/hash"
	"github.com/coreblock/node/foundation/wire"
)

// ancestryCmd represents the ancestry command
var ancestryCmd = &cobra.Command{
	Use:   "ancestry <hash>",
	Short: "Print the full lineage of a block, oldest first.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		h, err := hash.FromString(args[0])
		if err != nil {
			log.Fatal(err)
		}

		single, list, err := query(wire.BlockQueryAncestry(h))
		if err != nil {
			log.Fatal(err)
		}
		if err := printBlocks(single, list); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(ancestryCmd)
}
