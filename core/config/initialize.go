package config

import (
	"log"
	"os"

	"github.com/spf13/afero"
)

// Initialize writes a default configuration to the directory. Existing files
// are left alone.
func Initialize(dir string, logger *log.Logger) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return InitializeFs(afero.NewBasePathFs(afero.NewOsFs(), dir), logger)
}

// InitializeFs writes a default configuration to the root of fs.
func InitializeFs(fs afero.Fs, logger *log.Logger) error {
	files := []struct {
		name string
		data []byte
	}{
		{ConfigurationName, defaultConfigData},
		{StartupName, defaultStartupData},
	}

	for _, f := range files {
		exists, err := afero.Exists(fs, f.name)
		if err != nil {
			return err
		}
		if exists {
			logger.Printf("- %s already exists, skipping", f.name)
			continue
		}

		logger.Printf("- Writing %s", f.name)
		if err := afero.WriteFile(fs, f.name, f.data, 0644); err != nil {
			return err
		}
	}

	logger.Println("Done")
	return nil
}
