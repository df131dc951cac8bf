package profile

import (
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// ProfileSuffix names on-disk profile directories.
const ProfileSuffix = ".profile"

// Load reads every profile under root. A profile is a directory whose
// name ends in .profile; its id is the path from root with the separator
// replaced by "-" and the suffix stripped. Files inside the directory
// become file entries keyed by their relative path.
func Load(fs afero.Fs, root string) (map[string]*Profile, error) {
	out := make(map[string]*Profile)

	err := afero.Walk(fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() || !strings.HasSuffix(p, ProfileSuffix) {
			return nil
		}

		rel := strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
		id := strings.ReplaceAll(strings.TrimSuffix(rel, ProfileSuffix), "/", "-")
		b := NewBuilder(id)

		werr := afero.Walk(fs, p, func(fp string, finfo os.FileInfo, ferr error) error {
			if ferr != nil {
				return ferr
			}
			if finfo.IsDir() {
				return nil
			}
			data, rerr := afero.ReadFile(fs, fp)
			if rerr != nil {
				return rerr
			}
			name := strings.TrimPrefix(strings.TrimPrefix(fp, p), "/")
			b.AddFile(name, data)
			return nil
		})
		if werr != nil {
			return werr
		}

		out[id] = b.Build()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Save writes a profile under root, replacing any existing copy.
func Save(fs afero.Fs, root string, p *Profile) error {
	dir := profileDir(root, p.ID())
	if err := fs.RemoveAll(dir); err != nil {
		return err
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, name := range p.FileNames() {
		fp := path.Join(dir, name)
		if err := fs.MkdirAll(path.Dir(fp), 0o755); err != nil {
			return err
		}
		if err := afero.WriteFile(fs, fp, p.File(name), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a profile's directory.
func Delete(fs afero.Fs, root, id string) error {
	return fs.RemoveAll(profileDir(root, id))
}

// profileDir maps an id back to its directory: dashes nest.
func profileDir(root, id string) string {
	return path.Join(root, strings.ReplaceAll(id, "-", "/")+ProfileSuffix)
}
