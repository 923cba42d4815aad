package weather

import (
	"context"
)

type fakeProvider struct {
	calls int
	fetch func(city string, user User) (Observation, error)
}

func (f *fakeProvider) Fetch(_ context.Context, city string, user User) (Observation, error) {
	f.calls++
	return f.fetch(city, user)
}

type fakeHistory struct {
	saveErr error
	saved   []Observation
	savedBy []User
}

func (f *fakeHistory) Save(_ context.Context, obs Observation, user User) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, obs)
	f.savedBy = append(f.savedBy, user)
	return nil
}

func (f *fakeHistory) HistoryByCity(context.Context, int, string) ([]Observation, error) {
	return nil, nil
}

func (f *fakeHistory) HistoryByUser(context.Context, int, int64) ([]Observation, error) {
	return nil, nil
}

type fakeBroadcaster struct {
	observations []Observation
}

func (f *fakeBroadcaster) BroadcastObservation(obs Observation) {
	f.observations = append(f.observations, obs)
}
