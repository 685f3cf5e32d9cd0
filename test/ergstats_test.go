package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/rowlab/rowlab/internal/athletes"
	"github.com/rowlab/rowlab/internal/clubs"
	"github.com/rowlab/rowlab/internal/ergstats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) deleteAllErgTests(ctx context.Context) {
	_, err := s.dbPool.Exec(ctx, "DELETE FROM erg_test")
	require.NoError(s.T(), err)
}

func (s *IntegrationTestSuite) newErgTestRequest(
	ctx context.Context,
	test ergstats.Test,
) ergstats.AddTestResponse {
	testJson, err := json.Marshal(test)
	require.NoError(s.T(), err)

	req, err := http.NewRequestWithContext(
		ctx,
		"POST", fmt.Sprintf("%s/tests", serverEndpoint),
		bytes.NewReader(testJson),
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusCreated, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var addedTest ergstats.AddTestResponse
	require.NoError(s.T(), json.Unmarshal(respBytes, &addedTest))

	return addedTest
}

func (s *IntegrationTestSuite) getErgTestRequest(ctx context.Context, id string) ergstats.Test {
	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/tests/%s", serverEndpoint, id),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var test ergstats.Test
	require.NoError(s.T(), json.Unmarshal(respBytes, &test))
	return test
}

func (s *IntegrationTestSuite) updateErgTestRequest(
	ctx context.Context,
	test ergstats.Test,
) ergstats.UpdateTestResponse {
	testJson, err := json.Marshal(test)
	require.NoError(s.T(), err)

	req, err := http.NewRequestWithContext(
		ctx,
		"PUT", fmt.Sprintf("%s/tests", serverEndpoint),
		bytes.NewReader(testJson),
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var updateResp ergstats.UpdateTestResponse
	require.NoError(s.T(), json.Unmarshal(respBytes, &updateResp))
	return updateResp
}

func (s *IntegrationTestSuite) deleteErgTestRequest(ctx context.Context, id string) ergstats.DeleteTestResponse {
	req, err := http.NewRequestWithContext(
		ctx,
		"DELETE", fmt.Sprintf("%s/tests/%s", serverEndpoint, id),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var deleteResp ergstats.DeleteTestResponse
	require.NoError(s.T(), json.Unmarshal(respBytes, &deleteResp))
	return deleteResp
}

func (s *IntegrationTestSuite) listErgTestsRequest(ctx context.Context, params ergstats.ListParams) ergstats.ListResponse {
	urlVals := url.Values{}
	if params.AthleteID != "" {
		urlVals.Add("athlete_id", params.AthleteID)
	}
	if params.DistanceM != 0 {
		urlVals.Add("distance", fmt.Sprintf("%v", params.DistanceM))
	}

	req, err := http.NewRequestWithContext(
		ctx,
		"GET",
		fmt.Sprintf(
			"%s/tests/list/page/%d/size/%d?%s",
			serverEndpoint, params.Page, params.Size, urlVals.Encode(),
		),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var listResp ergstats.ListResponse
	require.NoError(s.T(), json.Unmarshal(respBytes, &listResp))
	return listResp
}

func (s *IntegrationTestSuite) athleteStatsRequest(ctx context.Context, athleteID string) ergstats.AthleteStatsResponse {
	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/tests/athlete/%s/stats", serverEndpoint, athleteID),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var statsResp ergstats.AthleteStatsResponse
	require.NoError(s.T(), json.Unmarshal(respBytes, &statsResp))
	return statsResp
}

func (s *IntegrationTestSuite) athleteOverviewRequest(ctx context.Context, athleteID string) ergstats.Overview {
	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/tests/athlete/%s/overview", serverEndpoint, athleteID),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var overview ergstats.Overview
	require.NoError(s.T(), json.Unmarshal(respBytes, &overview))
	return overview
}

func (s *IntegrationTestSuite) athletePredictionsRequest(ctx context.Context, athleteID string) ergstats.PredictionSet {
	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/tests/athlete/%s/predictions", serverEndpoint, athleteID),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var predictions ergstats.PredictionSet
	require.NoError(s.T(), json.Unmarshal(respBytes, &predictions))
	return predictions
}

func (s *IntegrationTestSuite) athleteZonesRequest(ctx context.Context, athleteID string) ergstats.TrainingZones {
	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/tests/athlete/%s/zones", serverEndpoint, athleteID),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var zones ergstats.TrainingZones
	require.NoError(s.T(), json.Unmarshal(respBytes, &zones))
	return zones
}

func (s *IntegrationTestSuite) athleteProgressionRequest(ctx context.Context, athleteID, distance string) []ergstats.ProgressionPoint {
	urlVals := url.Values{}
	if distance != "" {
		urlVals.Add("distance", distance)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		"GET",
		fmt.Sprintf(
			"%s/tests/athlete/%s/progression?%s",
			serverEndpoint, athleteID, urlVals.Encode(),
		),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var points []ergstats.ProgressionPoint
	require.NoError(s.T(), json.Unmarshal(respBytes, &points))
	return points
}

func (s *IntegrationTestSuite) athleteComparisonRequest(ctx context.Context, athleteID string) []ergstats.DistanceComparisonRow {
	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/tests/athlete/%s/comparison", serverEndpoint, athleteID),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var rows []ergstats.DistanceComparisonRow
	require.NoError(s.T(), json.Unmarshal(respBytes, &rows))
	return rows
}

func (s *IntegrationTestSuite) TestErgStats() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.deleteAllErgTests(context.Background())

	club := s.newClubRequest(ctx, clubs.Club{Name: "Ergo Performance Lab"})

	massKg := 80.0
	rower := s.newAthleteRequest(ctx, athletes.Athlete{
		Name:     "Tobias Eder",
		ClubID:   &club.ID,
		Category: "senior",
		MassKg:   &massKg,
	})
	// no body mass on this profile
	sculler := s.newAthleteRequest(ctx, athletes.Athlete{
		Name:     "Anna Gruber",
		ClubID:   &club.ID,
		Category: "senior",
	})

	now := time.Now()

	strokesT2 := 212
	t1 := ergstats.Test{
		AthleteID: rower.ID,
		TestDate:  now.AddDate(0, 0, -10),
		DistanceM: 2000,
		TimeS:     430,
	}
	t2 := ergstats.Test{
		AthleteID: rower.ID,
		TestDate:  now.AddDate(0, 0, -3),
		DistanceM: 2000,
		TimeS:     420,
		Strokes:   &strokesT2,
		Notes:     "felt strong, negative split",
	}
	t3 := ergstats.Test{
		AthleteID: rower.ID,
		TestDate:  now.AddDate(0, 0, -1),
		DistanceM: 2000,
		TimeS:     410,
	}
	t4 := ergstats.Test{
		AthleteID: rower.ID,
		TestDate:  now.AddDate(0, 0, -2),
		DistanceM: 5000,
		TimeS:     1100,
	}
	t5 := ergstats.Test{
		AthleteID: rower.ID,
		TestDate:  now.AddDate(0, 0, -20),
		DistanceM: 2000,
		TimeS:     440,
	}
	t6 := ergstats.Test{
		AthleteID: sculler.ID,
		TestDate:  now.AddDate(0, 0, -4),
		DistanceM: 6000,
		TimeS:     1500,
	}

	s.T().Run("no tests yet", func(t *testing.T) {
		statsResp := s.athleteStatsRequest(ctx, rower.ID)
		assert.Equal(t, rower.ID, statsResp.AthleteID)
		assert.Equal(t, 0, statsResp.TestsCount)
		assert.Empty(t, statsResp.Stats)
		assert.Empty(t, statsResp.AllTests)

		// no 2000m benchmark, so no predictions and no zones
		for _, path := range []string{"predictions", "zones"} {
			req, err := http.NewRequestWithContext(
				ctx,
				"GET", fmt.Sprintf("%s/tests/athlete/%s/%s", serverEndpoint, rower.ID, path),
				nil,
			)
			require.NoError(t, err)
			req.Header.Set("User-Agent", "test-agent")

			resp, err := s.httpClient.Do(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)

			respBytes, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Contains(t, string(respBytes), "no 2000m benchmark test")
		}
	})

	s.T().Run("submit tests, metrics derived at ingest", func(t *testing.T) {
		addedT2 := s.newErgTestRequest(ctx, t2)
		assert.Equal(t, 1, addedT2.CountAtDistance)
		assert.InDelta(t, 105.0, addedT2.PacePer500S, 0.001)
		assert.InDelta(t, 302.34, addedT2.PowerW, 0.001)
		// no mass submitted - the profile mass of 80kg kicks in
		require.NotNil(t, addedT2.MassKg)
		assert.InDelta(t, 80.0, *addedT2.MassKg, 0.001)
		require.NotNil(t, addedT2.PowerPerKg)
		assert.InDelta(t, 3.78, *addedT2.PowerPerKg, 0.001)
		require.NotNil(t, addedT2.Strokes)
		assert.Equal(t, 212, *addedT2.Strokes)

		addedT1 := s.newErgTestRequest(ctx, t1)
		assert.Equal(t, 2, addedT1.CountAtDistance)
		assert.InDelta(t, 107.5, addedT1.PacePer500S, 0.001)
		assert.InDelta(t, 281.74, addedT1.PowerW, 0.001)

		addedT3 := s.newErgTestRequest(ctx, t3)
		assert.Equal(t, 3, addedT3.CountAtDistance)
		assert.InDelta(t, 102.5, addedT3.PacePer500S, 0.001)
		assert.InDelta(t, 325.01, addedT3.PowerW, 0.001)
		require.NotNil(t, addedT3.PowerPerKg)
		assert.InDelta(t, 4.06, *addedT3.PowerPerKg, 0.001)

		addedT4 := s.newErgTestRequest(ctx, t4)
		assert.Equal(t, 1, addedT4.CountAtDistance)
		assert.InDelta(t, 110.0, addedT4.PacePer500S, 0.001)
		assert.InDelta(t, 262.96, addedT4.PowerW, 0.001)

		addedT5 := s.newErgTestRequest(ctx, t5)
		assert.Equal(t, 4, addedT5.CountAtDistance)
		assert.InDelta(t, 262.96, addedT5.PowerW, 0.001)

		addedT6 := s.newErgTestRequest(ctx, t6)
		assert.Equal(t, 1, addedT6.CountAtDistance)
		assert.InDelta(t, 125.0, addedT6.PacePer500S, 0.001)
		assert.InDelta(t, 179.2, addedT6.PowerW, 0.001)
		// the sculler has no body mass anywhere, relative power stays unknown
		assert.Nil(t, addedT6.MassKg)
		assert.Nil(t, addedT6.PowerPerKg)

		t1.ID, t2.ID, t3.ID = addedT1.ID, addedT2.ID, addedT3.ID
		t4.ID, t5.ID, t6.ID = addedT4.ID, addedT5.ID, addedT6.ID
	})

	s.T().Run("same test submitted twice gets blocked", func(t *testing.T) {
		resubmit := t2
		resubmit.ID = ""
		testJson, err := json.Marshal(resubmit)
		require.NoError(t, err)

		req, err := http.NewRequestWithContext(
			ctx,
			"POST", fmt.Sprintf("%s/tests", serverEndpoint),
			bytes.NewReader(testJson),
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		respBytes, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(respBytes), "same test submitted moments ago")
	})

	s.T().Run("invalid measurements rejected", func(t *testing.T) {
		for _, invalid := range []ergstats.Test{
			{AthleteID: rower.ID, DistanceM: 0, TimeS: 420},
			{AthleteID: rower.ID, DistanceM: 2000, TimeS: -5},
		} {
			testJson, err := json.Marshal(invalid)
			require.NoError(t, err)

			req, err := http.NewRequestWithContext(
				ctx,
				"POST", fmt.Sprintf("%s/tests", serverEndpoint),
				bytes.NewReader(testJson),
			)
			require.NoError(t, err)
			req.Header.Set("User-Agent", "test-agent")
			req.Header.Set("Content-Type", "application/json")

			resp, err := s.httpClient.Do(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			respBytes, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Contains(t, string(respBytes), "invalid measurement")
		}
	})

	s.T().Run("test for unknown athlete rejected", func(t *testing.T) {
		testJson, err := json.Marshal(ergstats.Test{
			AthleteID: "571d8c09-2c04-4cb5-8c2e-e5b1f0e53a28",
			DistanceM: 2000,
			TimeS:     400,
		})
		require.NoError(t, err)

		req, err := http.NewRequestWithContext(
			ctx,
			"POST", fmt.Sprintf("%s/tests", serverEndpoint),
			bytes.NewReader(testJson),
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		respBytes, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(respBytes), "athlete not found")
	})

	s.T().Run("get test", func(t *testing.T) {
		test := s.getErgTestRequest(ctx, t3.ID)
		assert.Equal(t, t3.ID, test.ID)
		assert.Equal(t, rower.ID, test.AthleteID)
		assert.Equal(t, "Tobias Eder", test.AthleteName)
		assert.Equal(t, 2000.0, test.DistanceM)
		assert.Equal(t, 410.0, test.TimeS)
		assert.InDelta(t, 325.01, test.PowerW, 0.001)
		assert.Equal(t,
			t3.TestDate.Truncate(time.Second).In(time.UTC),
			test.TestDate.Truncate(time.Second).In(time.UTC),
		)
	})

	s.T().Run("list tests", func(t *testing.T) {
		listResp := s.listErgTestsRequest(ctx, ergstats.ListParams{Page: 1, Size: 10})
		require.Len(t, listResp.Tests, 6)
		assert.Equal(t, 6, listResp.Total)
		// sorted by test date desc
		assert.Equal(t, t3.ID, listResp.Tests[0].ID)
		assert.Equal(t, t4.ID, listResp.Tests[1].ID)
		assert.Equal(t, t2.ID, listResp.Tests[2].ID)
		assert.Equal(t, t6.ID, listResp.Tests[3].ID)
		assert.Equal(t, t1.ID, listResp.Tests[4].ID)
		assert.Equal(t, t5.ID, listResp.Tests[5].ID)

		rowerResp := s.listErgTestsRequest(ctx, ergstats.ListParams{
			TestParams: ergstats.TestParams{AthleteID: rower.ID},
			Page:       1,
			Size:       10,
		})
		require.Len(t, rowerResp.Tests, 5)
		assert.Equal(t, 5, rowerResp.Total)

		twoKmResp := s.listErgTestsRequest(ctx, ergstats.ListParams{
			TestParams: ergstats.TestParams{DistanceM: 2000},
			Page:       1,
			Size:       10,
		})
		require.Len(t, twoKmResp.Tests, 4)
		assert.Equal(t, 4, twoKmResp.Total)

		// first page only
		pagedResp := s.listErgTestsRequest(ctx, ergstats.ListParams{
			TestParams: ergstats.TestParams{AthleteID: rower.ID},
			Page:       1,
			Size:       2,
		})
		require.Len(t, pagedResp.Tests, 2)
		assert.Equal(t, 5, pagedResp.Total)
		assert.Equal(t, t3.ID, pagedResp.Tests[0].ID)
		assert.Equal(t, t4.ID, pagedResp.Tests[1].ID)
	})

	s.T().Run("update test", func(t *testing.T) {
		strokesT5 := 220
		updated := t5
		updated.Strokes = &strokesT5
		updated.Notes = "steady state, technique focus"

		updateResp := s.updateErgTestRequest(ctx, updated)
		assert.Equal(t, t5.ID, updateResp.UpdatedID)

		updatedT5 := s.getErgTestRequest(ctx, t5.ID)
		assert.Equal(t, "steady state, technique focus", updatedT5.Notes)
		require.NotNil(t, updatedT5.Strokes)
		assert.Equal(t, 220, *updatedT5.Strokes)
		assert.InDelta(t, 262.96, updatedT5.PowerW, 0.001)
		// no mass in the update payload, relative power gets cleared
		assert.Nil(t, updatedT5.PowerPerKg)
	})

	s.T().Run("delete test", func(t *testing.T) {
		deleteResp := s.deleteErgTestRequest(ctx, t5.ID)
		assert.Equal(t, t5.ID, deleteResp.DeletedID)

		req, err := http.NewRequestWithContext(
			ctx,
			"GET", fmt.Sprintf("%s/tests/%s", serverEndpoint, t5.ID),
			nil,
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	s.T().Run("athlete stats", func(t *testing.T) {
		statsResp := s.athleteStatsRequest(ctx, rower.ID)
		assert.Equal(t, rower.ID, statsResp.AthleteID)
		assert.Equal(t, 4, statsResp.TestsCount)
		require.Len(t, statsResp.Stats, 2)

		twoKm, ok := statsResp.Stats["2000m"]
		require.True(t, ok)
		assert.Equal(t, 3, twoKm.Count)
		assert.Equal(t, t3.ID, twoKm.Best.ID)
		assert.InDelta(t, 325.01, twoKm.Best.PowerW, 0.001)
		assert.Equal(t, t3.ID, twoKm.Latest.ID)

		// bucket tests run oldest to newest
		require.Len(t, twoKm.Tests, 3)
		assert.Equal(t, t1.ID, twoKm.Tests[0].ID)
		assert.Equal(t, t2.ID, twoKm.Tests[1].ID)
		assert.Equal(t, t3.ID, twoKm.Tests[2].ID)

		fiveKm, ok := statsResp.Stats["5000m"]
		require.True(t, ok)
		assert.Equal(t, 1, fiveKm.Count)
		assert.Equal(t, t4.ID, fiveKm.Best.ID)

		require.Len(t, statsResp.AllTests, 4)
		assert.Equal(t, t3.ID, statsResp.AllTests[0].ID)
	})

	s.T().Run("predictions", func(t *testing.T) {
		predictions := s.athletePredictionsRequest(ctx, rower.ID)
		assert.Equal(t, t3.ID, predictions.Benchmark.ID)
		require.Len(t, predictions.Efforts, 3)

		sprint := predictions.Efforts[0]
		assert.Equal(t, "100m", sprint.Effort)
		assert.InDelta(t, 562.27, sprint.PowerW, 0.001)
		require.NotNil(t, sprint.TimeS)
		assert.InDelta(t, 16.5, *sprint.TimeS, 0.001)

		minute := predictions.Efforts[1]
		assert.Equal(t, "60sec", minute.Effort)
		assert.InDelta(t, 438.76, minute.PowerW, 0.001)
		require.NotNil(t, minute.DistanceM)
		assert.InDelta(t, 330.0, *minute.DistanceM, 0.001)

		sixKm := predictions.Efforts[2]
		assert.Equal(t, "6000m", sixKm.Effort)
		assert.InDelta(t, 276.26, sixKm.PowerW, 0.001)
		require.NotNil(t, sixKm.TimeS)
		assert.InDelta(t, 1299.7, *sixKm.TimeS, 0.001)

		// the sculler only rowed a 6000m, no 2000m benchmark
		req, err := http.NewRequestWithContext(
			ctx,
			"GET", fmt.Sprintf("%s/tests/athlete/%s/predictions", serverEndpoint, sculler.ID),
			nil,
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	s.T().Run("training zones", func(t *testing.T) {
		zones := s.athleteZonesRequest(ctx, rower.ID)
		assert.InDelta(t, 325.01, zones.BenchmarkPowerW, 0.001)
		require.Len(t, zones.Zones, 5)

		for i, name := range []string{"UT2", "UT1", "AT", "TR", "AN"} {
			assert.Equal(t, name, zones.Zones[i].Name)
		}

		ut2 := zones.Zones[0]
		assert.InDelta(t, 178.7555, ut2.MinWatts, 0.001)
		assert.InDelta(t, 211.2565, ut2.MaxWatts, 0.001)

		an := zones.Zones[4]
		assert.InDelta(t, 341.2605, an.MaxWatts, 0.001)

		for i, zone := range zones.Zones {
			// the faster split bound belongs to the higher watt bound
			assert.Less(t, zone.PaceMinS, zone.PaceMaxS)
			if i > 0 {
				assert.InDelta(t, zones.Zones[i-1].MaxWatts, zone.MinWatts, 0.001)
			}
		}
	})

	s.T().Run("progression", func(t *testing.T) {
		points := s.athleteProgressionRequest(ctx, rower.ID, "")
		require.Len(t, points, 3)
		// chronologically ascending
		assert.InDelta(t, 281.74, points[0].PowerW, 0.001)
		assert.InDelta(t, 302.34, points[1].PowerW, 0.001)
		assert.InDelta(t, 325.01, points[2].PowerW, 0.001)
		assert.True(t, points[0].Date.Before(points[1].Date))
		assert.True(t, points[1].Date.Before(points[2].Date))

		fiveKmPoints := s.athleteProgressionRequest(ctx, rower.ID, "5000")
		require.Len(t, fiveKmPoints, 1)
		assert.InDelta(t, 262.96, fiveKmPoints[0].PowerW, 0.001)

		scullerPoints := s.athleteProgressionRequest(ctx, sculler.ID, "")
		assert.Empty(t, scullerPoints)
	})

	s.T().Run("distance comparison", func(t *testing.T) {
		rows := s.athleteComparisonRequest(ctx, rower.ID)
		require.Len(t, rows, 2)

		assert.Equal(t, "2000m", rows[0].Label)
		assert.InDelta(t, 325.01, rows[0].BestPowerW, 0.001)
		assert.InDelta(t, 325.01, rows[0].LatestPowerW, 0.001)

		assert.Equal(t, "5000m", rows[1].Label)
		assert.InDelta(t, 262.96, rows[1].BestPowerW, 0.001)
	})

	s.T().Run("overview", func(t *testing.T) {
		overview := s.athleteOverviewRequest(ctx, rower.ID)
		assert.Equal(t, rower.ID, overview.AthleteID)
		assert.Equal(t, 4, overview.TestsCount)
		assert.Len(t, overview.Stats, 2)
		require.NotNil(t, overview.Predictions)
		assert.Equal(t, t3.ID, overview.Predictions.Benchmark.ID)
		require.NotNil(t, overview.Zones)
		assert.InDelta(t, 325.01, overview.Zones.BenchmarkPowerW, 0.001)
		assert.Len(t, overview.Comparison, 2)
		assert.Len(t, overview.AllTests, 4)

		// no benchmark is fine for the overview, those sections just stay empty
		scullerOverview := s.athleteOverviewRequest(ctx, sculler.ID)
		assert.Equal(t, 1, scullerOverview.TestsCount)
		assert.Nil(t, scullerOverview.Predictions)
		assert.Nil(t, scullerOverview.Zones)
		require.Len(t, scullerOverview.Comparison, 1)
		assert.Equal(t, "6000m", scullerOverview.Comparison[0].Label)
	})

	s.T().Run("athlete with recorded tests cannot be deleted", func(t *testing.T) {
		req, err := http.NewRequestWithContext(
			ctx,
			"DELETE", fmt.Sprintf("%s/athletes/%s", serverEndpoint, rower.ID),
			nil,
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		respBytes, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(respBytes), "athlete still has erg tests recorded")

		// once the tests are gone, the profile can go too
		s.deleteErgTestRequest(ctx, t6.ID)
		deleteResp := s.deleteAthleteRequest(ctx, sculler.ID)
		assert.Equal(t, sculler.ID, deleteResp.DeletedID)
	})
}
