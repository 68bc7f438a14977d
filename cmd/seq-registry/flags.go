package main

import (
	"gopkg.in/alecthomas/kingpin.v2"
)

var (
	flagConfig = kingpin.Flag("config", `path to the yaml config, defaults are used if empty`).Envar("SEQ_REGISTRY_CONFIG").String()

	// overrides of the config file
	flagAddr               = kingpin.Flag("addr", `listen addr e.g. ":9002"`).String()
	flagDebugAddr          = kingpin.Flag("debug-addr", `debug listen addr e.g. ":9200"`).String()
	flagStorage            = kingpin.Flag("storage", `storage backend`).HintOptions("memory", "sqlite", "redis").String()
	flagDataDir            = kingpin.Flag("data-dir", `directory to load/store data`).String()
	flagTracingProbability = kingpin.Flag("tracing-probability", `tracing sampling probability, 0 disables tracing`).Float64()

	cmdServe = kingpin.Command("serve", `serve the registry api`).Default()

	cmdKeys     = kingpin.Command("keys", `manage mixnode keys`)
	cmdKeysInit = cmdKeys.Command("init", `generate a new key pair`)
	cmdKeysShow = cmdKeys.Command("show", `print the public key`)

	cmdSnapshot     = kingpin.Command("snapshot", `dump or restore the configured storage`)
	cmdSnapshotSave = cmdSnapshot.Command("save", `dump the storage into a snapshot file`)
	flagSnapshotOut = cmdSnapshotSave.Arg("file", `snapshot file`).Required().String()
	cmdSnapshotLoad = cmdSnapshot.Command("load", `restore a snapshot file into the storage`)
	flagSnapshotIn  = cmdSnapshotLoad.Arg("file", `snapshot file`).Required().ExistingFile()
)
