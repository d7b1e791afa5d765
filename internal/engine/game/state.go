package game

import (
	"time"

	"github.com/KirkDiggler/dogstory-api/internal/entities/world"
)

// State is everything needed to rebuild the registry after a restart.
// Maps are referenced by id only.
type State struct {
	Now       time.Duration
	NextDogID uint64
	Sessions  []SessionState
}

// SessionState is the mutable part of one session
type SessionState struct {
	MapID           string
	NextItemID      uint64
	TimeWithoutLoot time.Duration
	Dogs            []world.Dog
	LostObjects     []world.LostObject
}

func (s *Session) export() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := SessionState{
		MapID:           s.gameMap.ID,
		NextItemID:      s.nextItemID,
		TimeWithoutLoot: s.generator.TimeWithoutLoot(),
		Dogs:            make([]world.Dog, 0, len(s.dogs)),
		LostObjects:     append([]world.LostObject(nil), s.lostObjects...),
	}
	for _, dog := range s.dogs {
		st.Dogs = append(st.Dogs, *dog.Clone())
	}
	return st
}

// restore replaces the session contents with st and returns the highest dog id seen
func (s *Session) restore(st SessionState) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var maxDogID uint64
	s.dogs = make([]*world.Dog, 0, len(st.Dogs))
	for i := range st.Dogs {
		dog := st.Dogs[i].Clone()
		s.dogs = append(s.dogs, dog)
		maxDogID = max(maxDogID, dog.ID)
	}

	s.lostObjects = append([]world.LostObject(nil), st.LostObjects...)
	s.nextItemID = st.NextItemID
	for _, obj := range s.lostObjects {
		s.nextItemID = max(s.nextItemID, obj.ID+1)
	}
	for _, dog := range s.dogs {
		for _, item := range dog.Bag {
			s.nextItemID = max(s.nextItemID, item.ID+1)
		}
	}
	s.generator.RestoreTimeWithoutLoot(st.TimeWithoutLoot)
	return maxDogID
}
