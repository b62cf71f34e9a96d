// Package openairt is a WebSocket client for OpenAI's Realtime API.
//
// Connect a session, configure it, then stream audio in and consume server
// events out:
//
//	client := openairt.NewClient(apiKey)
//	session, err := client.Connect(ctx, nil)
//	if err != nil {
//	    return err
//	}
//	defer session.Close()
//
//	err = session.UpdateSession(&openairt.SessionConfig{
//	    Voice:             "alloy",
//	    InputAudioFormat:  openairt.AudioFormatG711ULaw,
//	    OutputAudioFormat: openairt.AudioFormatG711ULaw,
//	    TurnDetection:     &openairt.TurnDetection{Type: openairt.VADServerVAD},
//	})
//
//	for event, err := range session.Events() {
//	    if err != nil {
//	        return err
//	    }
//	    switch event.Type {
//	    case openairt.EventTypeResponseAudioDelta:
//	        play(event.Audio)
//	    case openairt.EventTypeSpeechStarted:
//	        interrupt()
//	    }
//	}
//
// Send methods are safe for concurrent use from multiple goroutines; the
// Events iterator is not.
package openairt
