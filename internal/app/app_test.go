// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/sensortag_ahrs/internal/ahrs"
	"github.com/relabs-tech/sensortag_ahrs/internal/fusion"
	"github.com/relabs-tech/sensortag_ahrs/internal/imu"
	"github.com/relabs-tech/sensortag_ahrs/internal/orientation"
)

func levelHex() string {
	return hex.EncodeToString(imu.RawSample{Az: 4096, Mx: 200, Mz: -250}.Encode())
}

func TestReplayPrintsOneLinePerPayload(t *testing.T) {
	zeroMag := hex.EncodeToString(imu.RawSample{Az: 4096}.Encode())
	capture := strings.Join([]string{
		"# captured from the bridge",
		levelHex(),
		"not hex",
		"0102",
		zeroMag,
		levelHex(),
	}, "\n")

	proc := fusion.NewProcessor(ahrs.NewMadgwick(0.1, 0.1), orientation.ConventionZYX, nil)
	var out bytes.Buffer

	stats, err := replayPayloads(imu.NewHexLineSource(strings.NewReader(capture)), proc, &out)
	require.NoError(t, err)

	assert.Equal(t, replayStats{Payloads: 3, Dropped: 2, Degenerate: 1}, stats)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	for _, line := range lines {
		assert.Len(t, line, 32)
		fields := strings.Fields(line)
		require.Len(t, fields, 3)
		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			require.NoError(t, err)
			assert.InDelta(t, 0, v, 1e-9)
		}
	}
}

func TestPrintPoseFormat(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printPose(&out, orientation.Pose{Roll: 12.5, Pitch: -3.25, Yaw: 179.123456}))
	assert.Equal(t, "  12.50000   -3.25000  179.12346\n", out.String())
}

func TestBridgePayloads(t *testing.T) {
	input := strings.Join([]string{levelHex(), "xyz", "0102", levelHex()}, "\n")

	var published [][]byte
	var capture bytes.Buffer
	n, err := bridgePayloads(imu.NewHexLineSource(strings.NewReader(input)), &capture, func(p []byte) error {
		published = append(published, p)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	require.Len(t, published, 2)
	assert.Len(t, published[0], imu.PayloadSize)
	assert.Equal(t, levelHex()+"\n"+levelHex()+"\n", capture.String())
}

func TestBridgeSkipsFailedPublish(t *testing.T) {
	input := levelHex() + "\n" + levelHex()

	calls := 0
	n, err := bridgePayloads(imu.NewHexLineSource(strings.NewReader(input)), nil, func([]byte) error {
		calls++
		if calls == 1 {
			return errors.New("broker down")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, n)
}

func TestOrientationAPI(t *testing.T) {
	s := newPoseServer()
	srv := httptest.NewServer(s.routes(""))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/orientation")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	s.update(orientation.Pose{Roll: 1, Pitch: 2, Yaw: 3})

	resp, err = http.Get(srv.URL + "/api/orientation")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got orientation.Pose
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, orientation.Pose{Roll: 1, Pitch: 2, Yaw: 3}, got)
}

func TestOrientationWebSocket(t *testing.T) {
	s := newPoseServer()
	s.update(orientation.Pose{Yaw: 10})

	srv := httptest.NewServer(s.routes(""))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/orientation"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// Latest pose is sent on connect.
	var got orientation.Pose
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, 10.0, got.Yaw)

	// Updates are pushed once the client is subscribed.
	require.Eventually(t, func() bool {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return len(s.clients) == 1
	}, time.Second, 10*time.Millisecond)

	s.update(orientation.Pose{Yaw: 20})
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, 20.0, got.Yaw)
}
