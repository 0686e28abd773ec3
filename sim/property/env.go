package property

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
)

// EnvProvider provides property values from the process environment and
// from .env files. The environment takes precedence over the files, and
// earlier files over later ones.
type EnvProvider struct {
	values map[string]string
	lookup func(key string) (string, bool)
}

// NewEnvProvider reads the given .env files from fs.
func NewEnvProvider(fs afero.Fs, files ...string) (*EnvProvider, error) {
	p := &EnvProvider{
		values: make(map[string]string),
		lookup: os.LookupEnv,
	}

	for _, file := range files {
		if err := p.load(fs, file); err != nil {
			return nil, &ConfigurationError{Name: "EnvFile", Value: file, Err: err}
		}
	}

	return p, nil
}

func (p *EnvProvider) load(fs afero.Fs, file string) error {
	f, err := fs.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	values, err := godotenv.Parse(f)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", file, err)
	}

	for k, v := range values {
		if _, found := p.values[k]; !found {
			p.values[k] = v
		}
	}

	return nil
}

// Lookup finds the value of a property by its environment key.
func (p *EnvProvider) Lookup(name string) (string, bool) {
	key := EnvKey(name)

	if p.lookup != nil {
		if v, ok := p.lookup(key); ok {
			return v, true
		}
	}

	v, ok := p.values[key]

	return v, ok
}

// EnvKey maps a hierarchical property name to an environment variable name,
// such as Platform.CPU[1].Clock to PLATFORM_CPU_1_CLOCK.
func EnvKey(name string) string {
	r := strings.NewReplacer(".", "_", "[", "_", "]", "")

	return strings.ToUpper(r.Replace(name))
}
