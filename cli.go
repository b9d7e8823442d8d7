package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Blastus/confabulator/internal/store"
)

// RunCLI handles subcommand execution. Returns true if a subcommand was handled.
func RunCLI(args []string, dbPath string) bool {
	if len(args) == 0 {
		return false
	}

	switch args[0] {
	case "version":
		fmt.Printf("confabulator server %s\n", Version)
		return true
	case "status":
		return cliStatus(dbPath)
	case "accounts":
		return cliAccounts(dbPath)
	case "channels":
		return cliChannels(dbPath)
	case "bans":
		return cliBans(args[1:], dbPath)
	case "settings":
		return cliSettings(args[1:], dbPath)
	case "backup":
		return cliBackup(args[1:], dbPath)
	default:
		return false
	}
}

func openStore(dbPath string) *store.Store {
	st, err := store.New(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	return st
}

func cliStatus(dbPath string) bool {
	st := openStore(dbPath)
	defer st.Close()

	accounts, _ := st.LoadAccounts()
	channels, _ := st.LoadChannels()
	bans, _ := st.BanList()
	fmt.Printf("Database: %s\n", dbPath)
	fmt.Printf("Accounts: %d\n", len(accounts))
	fmt.Printf("Channels: %d\n", len(channels))
	fmt.Printf("Bans:     %d\n", len(bans))
	fmt.Printf("Version:  %s\n", Version)
	return true
}

func cliAccounts(dbPath string) bool {
	st := openStore(dbPath)
	defer st.Close()

	accounts, err := st.LoadAccounts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(accounts) == 0 {
		fmt.Println("No accounts found.")
		return true
	}
	for _, account := range accounts {
		tag := ""
		if account.Administrator {
			tag = " (administrator)"
		}
		fmt.Printf("  %s%s\n", account.Name, tag)
	}
	return true
}

func cliChannels(dbPath string) bool {
	st := openStore(dbPath)
	defer st.Close()

	channels, err := st.LoadChannels()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(channels) == 0 {
		fmt.Println("No channels found.")
		return true
	}
	for _, channel := range channels {
		fmt.Printf("  [%d] %s (owner %s, %s)\n",
			channel.ID, channel.Name, channel.Owner, channel.State)
	}
	return true
}

func cliBans(args []string, dbPath string) bool {
	st := openStore(dbPath)
	defer st.Close()

	if len(args) == 0 || args[0] == "list" {
		bans, err := st.BanList()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		if len(bans) == 0 {
			fmt.Println("No one is banned.")
			return true
		}
		for _, address := range bans {
			fmt.Printf("  %s\n", address)
		}
		return true
	}

	if args[0] == "add" && len(args) > 1 {
		if err := st.BanAdd(args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Banned %s\n", args[1])
		return true
	}

	if args[0] == "remove" && len(args) > 1 {
		if err := st.BanRemove(args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Unbanned %s\n", args[1])
		return true
	}

	fmt.Fprintf(os.Stderr, "Usage: server bans [list|add <address>|remove <address>]\n")
	os.Exit(1)
	return true
}

func cliSettings(args []string, dbPath string) bool {
	st := openStore(dbPath)
	defer st.Close()

	if len(args) == 0 || args[0] == "list" {
		settings, err := st.GetAllSettings()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		out, _ := json.MarshalIndent(settings, "", "  ")
		fmt.Println(string(out))
		return true
	}

	if args[0] == "set" && len(args) > 2 {
		key, value := args[1], args[2]
		if err := st.SetSetting(key, value); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Set %s = %s\n", key, value)
		return true
	}

	if args[0] == "unset" && len(args) > 1 {
		if err := st.DeleteSetting(args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Unset %s\n", args[1])
		return true
	}

	fmt.Fprintf(os.Stderr, "Usage: server settings [list|set <key> <value>|unset <key>]\n")
	os.Exit(1)
	return true
}

func cliBackup(args []string, dbPath string) bool {
	st := openStore(dbPath)
	defer st.Close()

	outPath := "confabulator-backup.db"
	if len(args) > 0 {
		outPath = args[0]
	}

	if err := st.Backup(outPath); err != nil {
		fmt.Fprintf(os.Stderr, "backup failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Database backed up to %s\n", outPath)
	return true
}
