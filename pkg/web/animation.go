package web

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-vhuman/pkg/animation"
	"github.com/teslashibe/go-vhuman/pkg/session"
)

// FacialRequest carries one face-mesh sample. Samples sharing a
// SessionID are smoothed together.
type FacialRequest struct {
	Landmarks []animation.Landmark `json:"landmarks"`
	Emotion   string               `json:"emotion"`
	Forward   bool                 `json:"forward"`
	SessionID string               `json:"session_id"`
}

// GestureRequest is the body of POST /api/animation/gesture.
type GestureRequest struct {
	GestureType string   `json:"gesture_type" query:"gesture_type"`
	Intensity   *float64 `json:"intensity" query:"intensity"`
}

// BlendshapeInfo describes one supported blendshape.
type BlendshapeInfo struct {
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
	Category string  `json:"category"`
}

func (s *Server) handleAnimationUpdate(c *fiber.Ctx) error {
	var req animation.UpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body")
	}
	frame, err := s.svc.Animation.Update(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message":        "Animation updated successfully",
		"animation_data": frame,
	})
}

func (s *Server) handleFacial(c *fiber.Ctx) error {
	var req FacialRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body")
	}

	b := s.svc.Animation.ProcessFacial(req.SessionID, req.Landmarks, req.Emotion)

	out := fiber.Map{
		"blendshapes":    b,
		"emotion":        req.Emotion,
		"landmark_count": len(req.Landmarks),
		"source":         facialSource(req.Landmarks),
	}
	if req.Forward {
		err := s.forwardFacial(c.UserContext(), b, req.Emotion)
		out["forwarded"] = err == nil
		if err != nil {
			out["forward_error"] = err.Error()
		}
	}
	return c.JSON(out)
}

func facialSource(landmarks []animation.Landmark) string {
	if len(landmarks) < animation.FaceMeshLandmarks {
		return "default"
	}
	return "landmarks"
}

// forwardFacial sends a facial frame to Unity on explicit request, dialling
// lazily even in demo mode.
func (s *Server) forwardFacial(ctx context.Context, b animation.Blendshapes, emotion string) error {
	frame := s.svc.Animation.CompleteAnimation(b, nil, emotion)
	if err := s.svc.Animation.Forward(ctx, frame); err != nil {
		s.log.Debug("facial frame not delivered", "error", err)
		return err
	}
	return nil
}

func (s *Server) handleBlendshapes(c *fiber.Ctx) error {
	names := animation.ARKitBlendshapes()
	out := make([]BlendshapeInfo, 0, len(names))
	for _, n := range names {
		out = append(out, BlendshapeInfo{Name: n, Category: animation.Category(n)})
	}
	return c.JSON(out)
}

func (s *Server) handleGesture(c *fiber.Ctx) error {
	var req GestureRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest("invalid request body")
		}
	}
	if req.GestureType == "" {
		if err := c.QueryParser(&req); err != nil {
			return badRequest("invalid query")
		}
	}

	intensity := 1.0
	if req.Intensity != nil {
		intensity = *req.Intensity
	}
	res, err := s.svc.Animation.TriggerGesture(c.UserContext(), req.GestureType, intensity)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (s *Server) handleAnimationStatus(c *fiber.Ctx) error {
	cfg := s.svc.Animation.Config()
	st := s.svc.Animation.Status()
	return c.JSON(fiber.Map{
		"queue_length":        st.QueueLength,
		"websocket_connected": st.WebSocketConnected,
		"demo_mode":           st.DemoMode,
		"healthy":             st.Healthy,
		"fps":                 cfg.FPS,
		"gesture_threshold":   cfg.GestureTriggerThreshold,
		"animation_clients":   s.svc.Sessions.Count(session.KindAnimation),
		"mediapipe_face_mesh": s.svc.Settings.MediaPipe.FaceMesh,
		"mediapipe_hands":     s.svc.Settings.MediaPipe.Hands,
		"mediapipe_pose":      s.svc.Settings.MediaPipe.Pose,
	})
}

func (s *Server) handleAnimationQueue(c *fiber.Ctx) error {
	q := s.svc.Animation.Queue()
	return c.JSON(fiber.Map{"queue": q, "count": len(q)})
}
