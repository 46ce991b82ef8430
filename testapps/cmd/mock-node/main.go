// mock-node is a stand-in worker binary for exercising testnetctl without a
// real node: it honors the node CLI contract, and when launched as the
// genesis node it binds a TCP port and publishes the connection-info file.
//
// Set MOCK_NODE_CRASH=1 to make it exit immediately, which trips the
// launcher's liveness check.
package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
)

const version = "mock-node 0.1.0"

type opts struct {
	first    bool
	rootDir  string
	contacts string
}

func parseArgs(args []string) opts {
	var o opts
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--first":
			o.first = true
			// optional bind address follows
			if i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] != '-' {
				i++
			}
		case "--root-dir", "--log-dir", "--idle-timeout-msec", "--keep-alive-interval-msec",
			"--max-capacity", "--local-addr", "--public-addr":
			if args[i] == "--root-dir" && i+1 < len(args) {
				o.rootDir = args[i+1]
			}
			i++
		case "--hard-coded-contacts":
			if i+1 < len(args) {
				o.contacts = args[i+1]
				i++
			}
		}
	}
	return o
}

func connInfoPath() string {
	if p := os.Getenv("TESTNET_CONN_INFO"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "node_connection_info.config"
	}
	return filepath.Join(home, ".testnet/node/node_connection_info.config")
}

func main() {
	for _, a := range os.Args[1:] {
		if a == "-V" || a == "--version" {
			fmt.Println(version)
			return
		}
	}

	if os.Getenv("MOCK_NODE_CRASH") == "1" {
		fmt.Fprintln(os.Stderr, "mock-node: crashing on request")
		os.Exit(1)
	}

	o := parseArgs(os.Args[1:])
	if o.rootDir != "" {
		_ = os.MkdirAll(o.rootDir, 0o755)
	}

	if o.first {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			fmt.Fprintln(os.Stderr, "mock-node:", err)
			os.Exit(1)
		}
		path := connInfoPath()
		_ = os.MkdirAll(filepath.Dir(path), 0o755)
		b, _ := json.Marshal([]string{ln.Addr().String()})
		if err := os.WriteFile(path, b, 0o644); err != nil {
			fmt.Fprintln(os.Stderr, "mock-node:", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "mock-node: genesis listening on %s\n", ln.Addr())
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}

	if o.contacts != "" {
		fmt.Fprintf(os.Stderr, "mock-node: joining via %s\n", o.contacts)
	}
	select {}
}
