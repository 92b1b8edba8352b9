package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/tKV/lib/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strconv"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Long:  "Sets the value for a key. With the json and typed codec the value is parsed as JSON (e.g. 42, true, {\"a\":1}), otherwise it is stored as text.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := parseValue(args[1])
			if _, err := rpcStore.SetItem(cmd.Context(), key, value); err != nil {
				return err
			} else {
				fmt.Println("set successfully")
			}
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if resp, err := rpcStore.GetItem(cmd.Context(), key); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, value=%s\n", key, formatValue(resp))
			}
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := rpcStore.RemoveItem(cmd.Context(), key); err != nil {
				return err
			} else {
				fmt.Println("delete successfully")
			}
			return nil
		},
	}
	keysCmd = &cobra.Command{
		Use:   "keys",
		Short: "Lists all keys of the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := rpcStore.Keys(cmd.Context())
			if err != nil {
				return err
			}
			for _, key := range keys {
				fmt.Println(key)
			}
			return nil
		},
	}
	lenCmd = &cobra.Command{
		Use:   "len",
		Short: "Prints the number of keys in the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if n, err := rpcStore.Length(cmd.Context()); err != nil {
				return err
			} else {
				fmt.Printf("length=%d\n", n)
			}
			return nil
		},
	}
	keyCmd = &cobra.Command{
		Use:   "key [n]",
		Short: "Prints the n-th key (zero based, in enumeration order)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("n must be a number: %w", err)
			}
			if key, ok, err := rpcStore.Key(cmd.Context(), n); err != nil {
				return err
			} else {
				fmt.Printf("n=%d, found=%t, key=%s\n", n, ok, key)
			}
			return nil
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Removes all keys of the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.Clear(cmd.Context()); err != nil {
				return err
			} else {
				fmt.Println("clear successfully")
			}
			return nil
		},
	}
	dropCmd = &cobra.Command{
		Use:   "drop [name] [store-name]",
		Short: "Drops a store or a whole database",
		Long:  "Drops a store or a whole database. Without arguments the current store is dropped, with only a name the whole database is dropped.",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts store.Config
			if len(args) > 0 {
				opts.Name = args[0]
			}
			if len(args) > 1 {
				opts.StoreName = args[1]
			}
			if path, err := rpcStore.DropInstance(cmd.Context(), opts); err != nil {
				return err
			} else {
				fmt.Printf("dropped %q\n", path)
			}
			return nil
		},
	}
	dumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Prints all key value pairs of the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := rpcStore.Iterate(cmd.Context(), func(value any, key string, iterationNumber int) (any, bool) {
				fmt.Printf("%d\t%s=%s\n", iterationNumber, key, formatValue(value))
				return nil, false
			})
			return err
		},
	}
	pingCmd = &cobra.Command{
		Use:   "ping",
		Short: "Checks if the storage of the shard is available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pinger, ok := rpcStore.(interface{ Ping(context.Context) error })
			if !ok {
				return fmt.Errorf("the store does not support ping")
			}
			if err := pinger.Ping(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("pong")
			return nil
		},
	}
)

// parseValue converts a command line argument into the value stored by the selected codec
func parseValue(arg string) any {
	switch viper.GetString("codec") {
	case "json", "typed":
		var v any
		if err := json.Unmarshal([]byte(arg), &v); err != nil {
			// plain text is stored as string
			return arg
		}
		return v
	case "bytes":
		return []byte(arg)
	default:
		return arg
	}
}

// formatValue formats a decoded value for the terminal
func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return v
	case []byte:
		return string(v)
	default:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", v)
	}
}
