// Package relay runs live voice conversations between a telephony media
// stream and a conversational AI endpoint.
//
// A Relay owns three loops. The inbound loop reads telephony frames,
// advances the per-call media clock, and forwards caller audio to the
// Uplink. The event loop consumes normalized uplink events, reacting to
// speech detection immediately and queueing AI audio for the playback
// loop, which delivers it in paced 20ms chunks and posts a
// synchronization mark after each utterance. Keeping pacing out of the
// event loop bounds barge-in latency by one chunk even when generated
// audio is backlogged.
//
// When the caller starts speaking over the AI, the relay truncates the
// in-flight utterance at the milliseconds actually played and clears the
// telephony playback buffer, so the caller never hears the AI talk past the
// interruption. Elapsed playback is measured against the inbound media
// clock rather than wall time.
//
// Two uplink backends exist: OpenAIUplink speaks G.711 audio directly with
// the realtime endpoint, and TTSUplink keeps the endpoint in text mode and
// voices replies through ElevenLabs.
package relay
