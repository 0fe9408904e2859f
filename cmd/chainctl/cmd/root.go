// Package cmd contains the chainctl debug commands. Each command dials a
// running node over the wire protocol and issues one block query.
package cmd

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/coreblock/node/foundation/block"
	"github.com/coreblock/node/foundation/connector"
	"github.com/coreblock/node/foundation/wire"
)

var nodeURI string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chainctl",
	Short: "Query a running chain node",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&nodeURI, "node", "n", "tcp://0.0.0.0:9080", "URI of the node to query.")
}

// query dials the node, sends one block query, and waits for the
// response. The node treats us as an inbound peer and may send its own
// query or announce frames first; those are skipped.
func query(q wire.Tuple) (block.Block, []block.Block, error) {
	address, err := connector.ParseURI(nodeURI)
	if err != nil {
		return block.Block{}, nil, err
	}

	conn, err := net.DialTimeout("tcp", address, 10*time.Second)
	if err != nil {
		return block.Block{}, nil, err
	}
	defer conn.Close()

	if err := wire.WriteFrame(conn, q); err != nil {
		return block.Block{}, nil, err
	}

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	for {
		term, err := wire.ReadFrame(conn)
		if err != nil {
			return block.Block{}, nil, err
		}

		msg, ok := term.(wire.Tuple)
		if !ok || len(msg) != 2 {
			continue
		}

		tag, ok := msg[0].(wire.Atom)
		if !ok || tag != wire.TagBlockResponse {
			continue
		}

		single, list, respErr, err := wire.ParseBlockResponse(msg[1])
		if err != nil {
			return block.Block{}, nil, err
		}
		return single, list, respErr
	}
}

// printBlocks renders query results as indented JSON.
func printBlocks(single block.Block, list []block.Block) error {
	var v any = single
	if list != nil {
		v = list
	}

	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(out))
	return nil
}
