package merger

import "fmt"

// Copy is the fallback merger: the incoming content replaces base
// entirely.
type Copy struct{}

var _ Merger = Copy{}

// NewCopy returns the copy merger.
func NewCopy() Copy { return Copy{} }

func (Copy) Name() string { return "copy" }

func (Copy) Preferences() []Preference { return nil }

// Merge returns incoming. The first time it overrides a file (when exactly
// one source contributed before) it adds a warning notice, so each file
// gets at most one.
func (c Copy) Merge(req Request) (Result, error) {
	_, notices := ResolveSettings(c.Name(), nil, req.Settings)
	notices = withContext(notices, req.Path, req.Source)
	if len(req.Contributors) == 1 {
		notices = append(notices, Notice{
			Level:  LevelWarning,
			Merger: c.Name(),
			Path:   req.Path,
			Source: req.Source,
			Message: fmt.Sprintf("no merger registered; content from %q replaces %q entirely",
				req.Source, req.Contributors[0]),
		})
	}
	return Result{Content: req.Incoming, Notices: notices}, nil
}
