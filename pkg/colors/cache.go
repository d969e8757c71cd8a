// Package colors assigns Google Calendar color ids to projects, recycling the
// least recently used color once all eleven are taken.
package colors

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/harrisonrobin/dayboard/pkg/util"
)

const (
	cacheFile = "project_colors.json"

	// NoProject is the gray used for tasks without a project.
	NoProject = "8"
	maxColor  = 11
)

type ProjectState struct {
	ColorID      string    `json:"color_id"`
	LastModified time.Time `json:"last_modified"`
}

type ColorCache struct {
	Path     string
	Projects map[string]*ProjectState `json:"projects"`

	mu    sync.Mutex
	dirty bool
	now   func() time.Time
}

// NewColorCache loads dir/project_colors.json when present.
func NewColorCache(dir string) (*ColorCache, error) {
	cache := &ColorCache{
		Path:     filepath.Join(dir, cacheFile),
		Projects: make(map[string]*ProjectState),
		now:      time.Now,
	}
	if _, err := os.Stat(cache.Path); err == nil {
		if err := cache.Load(); err != nil {
			return nil, err
		}
	}
	return cache, nil
}

func (c *ColorCache) Load() error {
	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(&c.Projects)
}

func (c *ColorCache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	if err := util.WriteJSON(c.Path, c.Projects); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

// GetColorID returns the color for project and marks it recently used.
func (c *ColorCache) GetColorID(project string) string {
	if project == "" {
		return NoProject
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if state, ok := c.Projects[project]; ok {
		state.LastModified = c.now()
		c.dirty = true
		return state.ColorID
	}
	return c.assignColor(project)
}

func (c *ColorCache) assignColor(project string) string {
	used := make(map[string]bool)
	for _, s := range c.Projects {
		used[s.ColorID] = true
	}
	for i := 1; i <= maxColor; i++ {
		id := strconv.Itoa(i)
		if id == NoProject {
			continue
		}
		if !used[id] {
			c.Projects[project] = &ProjectState{ColorID: id, LastModified: c.now()}
			c.dirty = true
			return id
		}
	}

	var oldestProject string
	var oldestTime time.Time
	for p, s := range c.Projects {
		if oldestProject == "" || s.LastModified.Before(oldestTime) {
			oldestProject, oldestTime = p, s.LastModified
		}
	}
	recycled := c.Projects[oldestProject].ColorID
	delete(c.Projects, oldestProject)
	c.Projects[project] = &ProjectState{ColorID: recycled, LastModified: c.now()}
	c.dirty = true
	return recycled
}
