package main

import (
	"flag"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/loader"
)

var (
	rigsPath     string
	packFilePath string
	logLevel     string
)

func parseFlags() {
	flag.StringVar(&rigsPath, "in", "./rigs",
		"Directory holding the YAML and glTF rigs to pack.")
	flag.StringVar(&packFilePath, "out", "./stage.res",
		"Resource file to store the rigs in.")
	flag.StringVar(&logLevel, "log", "info",
		"Log level (debug, info, warn, error).")

	flag.Parse()
}

func main() {
	parseFlags()
	handleError(common.SetLogLevel(logLevel))

	l := loader.NewLoader()
	rigs := map[string][]byte{}

	err := filepath.WalkDir(rigsPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		backend, ok := loader.BackendTypeForPath(path)
		if !ok {
			return nil
		}

		// Every rig is imported once so broken files never reach the pack.
		m, err := l.Load(path)
		if err != nil {
			return err
		}
		if _, dup := rigs[m.Name()]; dup {
			common.LogWarn("rig name packed twice, keeping the last one", "rig", m.Name(), "path", path)
		}

		var data []byte
		switch backend {
		case loader.BackendTypeYAML:
			data, err = os.ReadFile(path)
		default:
			data, err = loader.EncodeRig(m)
		}
		if err != nil {
			return err
		}
		rigs[m.Name()] = data
		common.LogInfo("packed rig", "rig", m.Name(), "bones", len(m.Bones()), "clips", len(m.Animations()))
		return nil
	})
	handleError(err)

	handleError(loader.WritePack(packFilePath, rigs))

	names, err := loader.ListPack(packFilePath)
	handleError(err)
	common.LogInfo("pack written", "path", packFilePath, "rigs", names)
}

func handleError(err error) {
	if err != nil {
		common.LogError("rig-packer failed", "err", err)
		os.Exit(1)
	}
}
