// Package state decides whether a directory's artifact is out of date.
package state

import (
	"io/fs"
	"os"
	"time"

	"github.com/babar-dev/babar/internal/artifact"
	"github.com/babar-dev/babar/internal/tree"
)

// Reason explains a staleness verdict.
type Reason string

const (
	Fresh    Reason = "fresh"
	Missing  Reason = "missing"
	Modified Reason = "modified"
)

// Verdict is the detailed result of Check.
type Verdict struct {
	Stale        bool
	Reason       Reason
	ArtifactTime time.Time
	NewestFile   string
	NewestTime   time.Time
}

// Oracle compares source modification times with the artifact's.
type Oracle struct {
	artifactName string
	stat         func(string) (fs.FileInfo, error)
}

// NewOracle returns an Oracle for artifacts called artifactName.
func NewOracle(artifactName string) *Oracle {
	if artifactName == "" {
		artifactName = artifact.DefaultName
	}
	return &Oracle{artifactName: artifactName, stat: os.Stat}
}

// NeedsAnalysis reports whether node must be summarized again.
func (o *Oracle) NeedsAnalysis(node *tree.Node) bool {
	return o.Check(node).Stale
}

// Check evaluates node. An artifact whose status cannot be read counts as missing.
// Only the node's own files are compared; descendants never make it stale.
func (o *Oracle) Check(node *tree.Node) Verdict {
	info, err := o.stat(artifact.PathFor(node.Path, o.artifactName))
	if err != nil {
		return Verdict{Stale: true, Reason: Missing}
	}

	v := Verdict{Reason: Fresh, ArtifactTime: info.ModTime()}
	for _, f := range node.Files {
		if f.ModTime.After(v.ArtifactTime) && f.ModTime.After(v.NewestTime) {
			v.Stale = true
			v.Reason = Modified
			v.NewestFile = f.Path
			v.NewestTime = f.ModTime
		}
	}
	return v
}
