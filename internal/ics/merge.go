package ics

import "esiplanner/internal/model"

// Merge folds src into dst. A new subject is copied in whole; for a known
// subject each class group is unioned with the existing group of the same
// type (new events appended at the end) or appended when the type is new.
// Subject names in dst are never changed. src is not modified.
func Merge(dst, src *model.Registry) {
	for _, incoming := range src.Subjects() {
		existing, ok := dst.Get(incoming.Code)
		if !ok {
			dst.Insert(incoming.Clone())
			continue
		}
		for _, class := range incoming.Classes {
			target := existing.FindClass(class.Type)
			if target == nil {
				existing.Classes = append(existing.Classes, &model.ClassGroup{
					Type:   class.Type,
					Events: append([]model.ScheduleEvent{}, class.Events...),
				})
				continue
			}
			for _, ev := range class.Events {
				target.AddEvent(ev)
			}
		}
	}
}

// Fold merges registries in argument order into a new registry.
func Fold(regs ...*model.Registry) *model.Registry {
	out := model.NewRegistry()
	for _, r := range regs {
		if r == nil {
			continue
		}
		Merge(out, r)
	}
	return out
}
