package calendar

// Resolve reduces the classifications of the events covering a target
// instant to a single verdict. items must be ordered by
// (SourceIndex, SequenceIndex); that order defines "first" and "latest".
// Neither entries are ignored. ok is false when nothing matched or
// priority is not a known strategy.
//
// A single event matching both keyword lists counts as work under
// KeepCurrent and UseLatest.
func Resolve(priority Priority, items []Classified) (verdict Verdict, ok bool) {
	matched := make([]Classification, 0, len(items))
	for _, item := range items {
		if item.Class != Neither {
			matched = append(matched, item.Class)
		}
	}

	if len(matched) == 0 {
		return 0, false
	}

	switch priority {
	case RestOverWork:
		for _, c := range matched {
			if c == Rest || c == Both {
				return RestDay, true
			}
		}
		return Workday, true

	case KeepCurrent:
		return fromClass(matched[0]), true

	case UseLatest:
		return fromClass(matched[len(matched)-1]), true

	case WorkOverRest:
		for _, c := range matched {
			if c == Work || c == Both {
				return Workday, true
			}
		}
		return RestDay, true

	default:
		return 0, false
	}
}

func fromClass(c Classification) Verdict {
	if c == Rest {
		return RestDay
	}
	return Workday
}
