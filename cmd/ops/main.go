package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"taskpad/internal/ops"
)

const lockTimeout = 10 * time.Second

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "backup":
		if err := cmdBackup(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "backup failed:", err)
			os.Exit(1)
		}
	case "restore":
		if err := cmdRestore(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "restore failed:", err)
			os.Exit(1)
		}
	case "verify":
		if err := cmdVerify(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "verify failed:", err)
			os.Exit(1)
		}
	default:
		printUsage()
		os.Exit(2)
	}
}

func cmdBackup(args []string) error {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	store := fs.String("store", filepath.Join("data", "tasks.json"), "path to task store file")
	out := fs.String("out", "", "output snapshot path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *out == "" {
		ts := time.Now().UTC().Format("20060102T150405Z")
		*out = filepath.Join("backups", "tasks-"+ts+".json")
	}

	if err := ops.SnapshotStore(*store, *out, lockTimeout); err != nil {
		return err
	}
	fmt.Println(*out)
	return nil
}

func cmdRestore(args []string) error {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	snapshot := fs.String("snapshot", "", "input snapshot file")
	store := fs.String("store", filepath.Join("data", "tasks.json"), "path to task store file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *snapshot == "" {
		return fmt.Errorf("snapshot is required")
	}
	return ops.RestoreStore(*snapshot, *store, lockTimeout)
}

func cmdVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	store := fs.String("store", filepath.Join("data", "tasks.json"), "path to task store file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	n, err := ops.VerifyStore(*store)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d tasks\n", *store, n)
	return nil
}

func printUsage() {
	fmt.Println("usage:")
	fmt.Println("  taskpad-ops backup  --store data/tasks.json --out backups/tasks.json")
	fmt.Println("  taskpad-ops restore --snapshot backups/tasks.json --store data/tasks.json")
	fmt.Println("  taskpad-ops verify  --store data/tasks.json")
}
