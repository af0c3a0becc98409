package app

import "rawlower/internal/core/watcher"

func (a *App) StartWatcher() error {
	w, err := watcher.NewWatcher(
		a.Config.Watch.Debounce,
		a.Config.Exclude.Dirs,
		a.Config.Exclude.Files,
		a.HandleChanges,
	)
	if err != nil {
		return err
	}

	a.watcherMu.Lock()
	a.activeWatcher = w
	a.watcherMu.Unlock()
	return w.Watch(a.Config.WatchPaths)
}
