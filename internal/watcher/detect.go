package watcher

import "time"

// detect posts a trigger if the source listing changed since the last
// trigger.
func (w *Watcher) detect(reason string) {
	sig, err := w.signature()
	if err != nil {
		w.log.Error("cannot read source directory", "error", err)
		return
	}

	w.mu.Lock()
	if sig == w.lastSig {
		w.mu.Unlock()
		return
	}
	w.lastSig = sig
	w.mu.Unlock()

	if w.mb.Put(Trigger{Reason: reason, At: time.Now()}) {
		w.log.Debug("coalesced with pending trigger", "reason", reason)
	} else {
		w.log.Info("source changed", "reason", reason)
	}
}
