package testutils

import "strings"

// An answer as the media server sends it to a subscriber: one sendonly audio and one sendonly
// video section, bundled, with opus and VP8/H264.
var AnswerSDP = crlf(`v=0
o=- 6053646926142183364 2 IN IP4 127.0.0.1
s=-
t=0 0
a=group:BUNDLE 0 1
a=extmap-allow-mixed
a=msid-semantic: WMS 85878b71-5625-4b99-9708-2c029d2514e4
m=audio 9 UDP/TLS/RTP/SAVPF 111
c=IN IP4 0.0.0.0
a=rtcp:9 IN IP4 0.0.0.0
a=ice-ufrag:RKlq
a=ice-pwd:YnrxJYzoniTvbsfZEh8KF8m+
a=ice-options:trickle
a=fingerprint:sha-256 6D:B5:89:FA:1A:DA:E2:39:A2:51:72:93:03:AC:9B:1E:2B:83:05:8A:8F:15:7B:7B:8F:5D:94:EE:C6:E8:94:D4
a=setup:passive
a=mid:0
a=extmap:1 urn:ietf:params:rtp-hdrext:ssrc-audio-level
a=extmap:4 urn:ietf:params:rtp-hdrext:sdes:mid
a=sendonly
a=msid:85878b71-5625-4b99-9708-2c029d2514e4 ea8e1d33-5157-4689-b453-a6f091cfa780
a=rtcp-mux
a=rtpmap:111 opus/48000/2
a=rtcp-fb:111 transport-cc
a=fmtp:111 minptime=10;useinbandfec=1
a=ssrc:2098463215 cname:OGXEjI7U6UvY9zvX
a=ssrc:2098463215 msid:85878b71-5625-4b99-9708-2c029d2514e4 ea8e1d33-5157-4689-b453-a6f091cfa780
m=video 9 UDP/TLS/RTP/SAVPF 96 97 102 103
c=IN IP4 0.0.0.0
a=rtcp:9 IN IP4 0.0.0.0
a=ice-ufrag:RKlq
a=ice-pwd:YnrxJYzoniTvbsfZEh8KF8m+
a=ice-options:trickle
a=fingerprint:sha-256 6D:B5:89:FA:1A:DA:E2:39:A2:51:72:93:03:AC:9B:1E:2B:83:05:8A:8F:15:7B:7B:8F:5D:94:EE:C6:E8:94:D4
a=setup:passive
a=mid:1
a=extmap:4 urn:ietf:params:rtp-hdrext:sdes:mid
a=sendonly
a=msid:85878b71-5625-4b99-9708-2c029d2514e4 5dd8290d-54c1-4c48-8148-48a49779823b
a=rtcp-mux
a=rtcp-rsize
a=rtpmap:96 VP8/90000
a=rtcp-fb:96 goog-remb
a=rtcp-fb:96 transport-cc
a=rtcp-fb:96 ccm fir
a=rtcp-fb:96 nack
a=rtcp-fb:96 nack pli
a=rtpmap:97 rtx/90000
a=fmtp:97 apt=96
a=rtpmap:102 H264/90000
a=rtcp-fb:102 goog-remb
a=rtcp-fb:102 transport-cc
a=rtcp-fb:102 ccm fir
a=rtcp-fb:102 nack
a=rtcp-fb:102 nack pli
a=fmtp:102 level-asymmetry-allowed=1;packetization-mode=1;profile-level-id=42001f
a=rtpmap:103 rtx/90000
a=fmtp:103 apt=102
a=ssrc-group:FID 4159985959 3428055460
a=ssrc:4159985959 cname:OGXEjI7U6UvY9zvX
a=ssrc:4159985959 msid:85878b71-5625-4b99-9708-2c029d2514e4 5dd8290d-54c1-4c48-8148-48a49779823b
a=ssrc:3428055460 cname:OGXEjI7U6UvY9zvX
a=ssrc:3428055460 msid:85878b71-5625-4b99-9708-2c029d2514e4 5dd8290d-54c1-4c48-8148-48a49779823b
`)

// A syntactically valid session description without any media section.
var EmptySDP = crlf(`v=0
o=- 6053646926142183364 2 IN IP4 127.0.0.1
s=-
t=0 0
`)

func crlf(sdp string) string {
	return strings.ReplaceAll(sdp, "\n", "\r\n")
}
