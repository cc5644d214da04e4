package scheduler

import "sync/atomic"

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		Enabled:  s.cfg.Enabled,
		Timezone: s.loc.String(),
	}
	c := s.c
	defs := make([]scheduleDef, len(s.defs))
	copy(defs, s.defs)
	s.mu.Unlock()

	for _, d := range defs {
		it := ScheduleInfo{Name: d.name, Spec: d.spec, Timeout: d.timeout}
		if c != nil && d.entryID != 0 {
			e := c.Entry(d.entryID)
			it.Next, it.Prev = e.Next, e.Prev
		}
		snap.Schedules = append(snap.Schedules, it)
	}

	s.tmu.Lock()
	snap.Armed = s.armed
	s.tmu.Unlock()
	snap.Pending = s.Pending()
	snap.Fired = atomic.LoadUint64(&s.fired)
	snap.Failed = atomic.LoadUint64(&s.failed)
	return snap
}
