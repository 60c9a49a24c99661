package sqlitestore

import (
	"xdao.co/facetreg/manifest"
	"xdao.co/facetreg/manifest/backends"
)

func init() {
	backends.MustRegister(backends.Backend{
		Name:        "sqlite",
		Description: "SQLite database, both documents replaced in one transaction",
		Open: func(opts backends.Options) (manifest.Store, func() error, error) {
			s, err := Open(opts.Location)
			if err != nil {
				return nil, nil, err
			}
			return s, s.Close, nil
		},
	})
}
