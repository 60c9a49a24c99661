package filestore

import (
	"xdao.co/facetreg/manifest"
	"xdao.co/facetreg/manifest/backends"
)

func init() {
	backends.MustRegister(backends.Backend{
		Name:        "file",
		Description: "addresses.json and combined-abi.json in a directory",
		Open: func(opts backends.Options) (manifest.Store, func() error, error) {
			s, err := New(opts.Location)
			return s, nil, err
		},
	})
}
