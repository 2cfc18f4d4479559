// Package version carries build metadata, set at link time:
//
//	go build -ldflags "-X github.com/bert42/fileserver/internal/version.Version=1.2.0 -X github.com/bert42/fileserver/internal/version.Commit=abcd123"
package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "0.1.0"
	Commit    = ""
	BuildDate = ""
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
}

func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

func (i Info) String() string {
	s := i.Version
	if s == "" {
		s = "dev"
	}
	if i.Commit != "" {
		s += fmt.Sprintf(" (%s)", i.Commit)
	}
	if i.BuildDate != "" {
		s += fmt.Sprintf(" built %s", i.BuildDate)
	}
	return s + fmt.Sprintf(" [%s]", i.GoVersion)
}
