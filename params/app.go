package params

import (
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

var DatadirRoot = func() string {
	home, err := homedir.Dir()
	if err != nil {
		return ".gazed"
	}
	return filepath.Join(home, ".gazed")
}()

func DefaultLogfilePath() string {
	return filepath.Join(DatadirRoot, "gazedata.csv")
}

func DefaultStateDBPath() string {
	return filepath.Join(DatadirRoot, "session.db")
}
