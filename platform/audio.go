package platform

import "github.com/veandco/go-sdl2/sdl"

// The CHIP-8 has a single fixed tone; the original machines produced
// something close to a 440Hz buzz.
const toneFreq = 440
const sampleFreq = 48000

// keep roughly a quarter second queued while the beep is playing so a slow
// frame never underruns the audio device
const queueTarget = sampleFreq / 4

// beeper plays a square wave on an SDL audio device while the machine's sound
// timer is non-zero. The device stays paused while silent.
type beeper struct {
	id   sdl.AudioDeviceID
	spec sdl.AudioSpec

	// one pre-rendered wave period, repeatedly queued while playing
	tone []byte

	playing bool
}

func newBeeper() (*beeper, error) {
	want := &sdl.AudioSpec{
		Freq:     sampleFreq,
		Format:   sdl.AUDIO_U8,
		Channels: 1,
		Samples:  512,
	}

	var spec sdl.AudioSpec

	id, err := sdl.OpenAudioDevice("", false, want, &spec, 0)
	if err != nil {
		return nil, err
	}

	b := &beeper{
		id:   id,
		spec: spec,
	}
	b.renderTone()

	return b, nil
}

// renderTone pre-computes a batch of square wave samples around the device's
// silence value.
func (b *beeper) renderTone() {
	const amplitude = 24

	b.tone = make([]byte, queueTarget)
	halfPeriod := sampleFreq / toneFreq / 2

	for i := range b.tone {
		if (i/halfPeriod)%2 == 0 {
			b.tone[i] = b.spec.Silence + amplitude
		} else {
			b.tone[i] = b.spec.Silence - amplitude
		}
	}
}

// setPlaying matches the beeper to the sound timer. Called once per frame, it
// tops up the audio queue while the tone is playing.
func (b *beeper) setPlaying(on bool) {
	if on {
		if sdl.GetQueuedAudioSize(b.id) < queueTarget {
			_ = sdl.QueueAudio(b.id, b.tone)
		}
		if !b.playing {
			sdl.PauseAudioDevice(b.id, false)
			b.playing = true
		}
		return
	}

	if b.playing {
		sdl.PauseAudioDevice(b.id, true)
		sdl.ClearQueuedAudio(b.id)
		b.playing = false
	}
}

func (b *beeper) close() {
	sdl.PauseAudioDevice(b.id, true)
	sdl.CloseAudioDevice(b.id)
}
