// Package tmpl renders the artefact templates the stage executor needs
// for GenerateArtefacts: libvirt domain XML, cloud-init seed files, and
// the temporary install-network XML. Templates are Go string constants
// compiled in, rather than assets loaded from disk, since this repo
// carries no web UI to serve alongside them.
package tmpl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/template"
)

// assets holds every named template source, keyed the same way the
// teacher's bindata package keyed its embedded files.
var assets = map[string]string{
	"domain.xml.tmpl":      domainXMLTemplate,
	"network.xml.tmpl":     networkXMLTemplate,
	"meta-data.tmpl":       metaDataTemplate,
	"user-data.tmpl":       userDataTemplate,
	"network-config.tmpl":  networkConfigTemplate,
}

func GenerateFromTemplate(name string, data interface{}, w io.Writer) error {
	src, ok := assets[name]
	if !ok {
		return fmt.Errorf("no template named %s", name)
	}

	funcs := template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
	}

	tmpl := template.Must(template.New(name).Funcs(funcs).Parse(src))

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("executing %s template: %w", name, err)
	}

	return nil
}

func CreateFileFromTemplate(name string, data interface{}, filename string) error {
	dir := filepath.Dir(filename)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating template path: %w", err)
	}

	f, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating template file: %w", err)
	}

	defer f.Close()

	return GenerateFromTemplate(name, data, f)
}
