// Package quic implements the loss detection and recovery core of a QUIC
// transport endpoint, together with the header processing pipeline that
// feeds it: header protection removal, packet number decoding and
// reconstruction, packet number space classification and spin bit tracking.
//
// The loss detector lives in internal/ackhandler. It tracks sent packets in
// three parallel packet number spaces (Initial, Handshake, ApplicationData),
// infers losses by packet and time thresholds, and drives a multi-mode
// retransmission alarm (handshake retransmission, time threshold loss, probe
// timeout). Collaborators are reached exclusively through narrow interfaces:
// an AEADProvider for header protection keys, an Alarm for timeouts, and a
// PacketObserver for the emitted events.
package quic
