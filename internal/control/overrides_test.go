package control

import (
	"sync"
	"testing"

	"github.com/afroash/storm-antenna/internal/models"
)

func TestOverrideStore(t *testing.T) {
	store := NewOverrideStore()
	if store.Get().Any() {
		t.Fatal("new store should have no overrides")
	}

	store.SetFlag(models.ChannelStormLED)
	store.SetFlag(models.ChannelStormLED)
	got := store.Get()
	if !got.StormLED || got.Antenna || got.CloudsLED || got.OnAirLED {
		t.Errorf("after SetFlag(storm_led) = %+v", got)
	}

	store.SetFlag(models.ChannelAntenna)
	store.ResetAll()
	if store.Get().Any() {
		t.Errorf("ResetAll left flags set: %+v", store.Get())
	}
}

func TestOverrideStore_GetReturnsCopy(t *testing.T) {
	store := NewOverrideStore()
	snapshot := store.Get()
	store.SetFlag(models.ChannelCloudsLED)

	if snapshot.CloudsLED {
		t.Error("earlier Get result changed after SetFlag")
	}
}

func TestOverrideStore_Concurrent(t *testing.T) {
	store := NewOverrideStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(ch models.Channel) {
			defer wg.Done()
			store.SetFlag(ch)
		}(models.AllChannels[i%len(models.AllChannels)])
		go func() {
			defer wg.Done()
			_ = store.Get()
		}()
	}
	wg.Wait()

	for _, ch := range models.AllChannels {
		if !store.Get().Get(ch) {
			t.Errorf("flag %s not set", ch)
		}
	}
}
