// booking-sim smoke-tests a running clinic-service: it creates a patient and
// a doctor, books an appointment, then fires concurrent bookings inside the
// same conflict window and reports how many were accepted (exactly one is the
// expected answer).
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

func main() {
	var (
		baseURL    = flag.String("base-url", getenv("BASE_URL", "http://localhost:8080"), "clinic-service base url")
		at         = flag.String("at", "", "appointment time (RFC3339, default tomorrow 10:00 UTC)")
		concurrent = flag.Int("concurrent", 8, "concurrent bookings to fire in the same window")
	)
	flag.Parse()

	base := strings.TrimRight(*baseURL, "/")

	scheduledAt := time.Now().UTC().AddDate(0, 0, 1)
	scheduledAt = time.Date(scheduledAt.Year(), scheduledAt.Month(), scheduledAt.Day(), 10, 0, 0, 0, time.UTC)
	if *at != "" {
		t, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			fatal("invalid -at: " + err.Error())
		}
		scheduledAt = t.UTC()
	}

	suffix := time.Now().UnixNano()
	patientID := createRecord(base+"/api/v1/patients", map[string]any{
		"full_name":     "Sim Patient",
		"email":         fmt.Sprintf("sim-patient-%d@example.com", suffix),
		"phone":         "+8801700000000",
		"date_of_birth": "1990-04-02",
	})
	doctorID := createRecord(base+"/api/v1/doctors", map[string]any{
		"name":           "Dr. Sim",
		"specialization": "General Medicine",
		"email":          fmt.Sprintf("sim-doctor-%d@example.com", suffix),
		"phone":          "+8801700000001",
		"license_number": fmt.Sprintf("SIM-%d", suffix),
	})
	fmt.Printf("patient=%d doctor=%d\n", patientID, doctorID)

	status, body := post(base+"/api/v1/appointments", map[string]any{
		"patient_id":   patientID,
		"doctor_id":    doctorID,
		"scheduled_at": scheduledAt.Format(time.RFC3339),
	})
	fmt.Printf("book %s: status=%d body=%s\n", scheduledAt.Format(time.RFC3339), status, body)
	if status != http.StatusCreated {
		fatal("initial booking failed")
	}

	// Concurrent bookings at small offsets inside the 30-minute window. All
	// of them collide with the booking above, so every one should come back
	// as a 409.
	var accepted, conflicted int64
	var wg sync.WaitGroup
	for i := 0; i < *concurrent; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			status, _ := post(base+"/api/v1/appointments", map[string]any{
				"patient_id":   patientID,
				"doctor_id":    doctorID,
				"scheduled_at": scheduledAt.Add(time.Duration(offset+1) * 3 * time.Minute).Format(time.RFC3339),
			})
			switch status {
			case http.StatusCreated:
				atomic.AddInt64(&accepted, 1)
			case http.StatusConflict:
				atomic.AddInt64(&conflicted, 1)
			}
		}(i)
	}
	wg.Wait()

	fmt.Printf("concurrent: accepted=%d conflicted=%d (want accepted=0)\n", accepted, conflicted)
	if accepted != 0 {
		fatal("double booking slipped through")
	}
	fmt.Println("ok")
}

func createRecord(url string, payload map[string]any) int64 {
	status, body := post(url, payload)
	if status != http.StatusCreated {
		fatal(fmt.Sprintf("create %s: status=%d body=%s", url, status, body))
	}
	var resp struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil || resp.ID == 0 {
		fatal("create " + url + ": no id in response")
	}
	return resp.ID
}

func post(url string, payload map[string]any) (int, string) {
	body, err := json.Marshal(payload)
	if err != nil {
		fatal(err.Error())
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return resp.StatusCode, strings.TrimSpace(string(out))
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
