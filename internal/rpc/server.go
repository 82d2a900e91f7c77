package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/dmgomes/nextup/internal/notify"
	"github.com/dmgomes/nextup/internal/scheduler"
	"github.com/dmgomes/nextup/internal/types"
)

// Version is stamped at build time.
var Version = "dev"

// Server answers JSON-line requests over a unix socket. Each request is
// one line; each response is one line. A subscribe request switches the
// connection into a one-way event stream.
type Server struct {
	socketPath string
	dbPath     string
	svc        *scheduler.Service
	hub        *notify.Hub

	listener  net.Listener
	startTime time.Time

	mu       sync.Mutex
	stopped  bool
	shutdown chan struct{}
}

func NewServer(socketPath string, svc *scheduler.Service, hub *notify.Hub, dbPath string) *Server {
	return &Server{
		socketPath: socketPath,
		dbPath:     dbPath,
		svc:        svc,
		hub:        hub,
		shutdown:   make(chan struct{}),
	}
}

// ShutdownRequested is closed when a client asked the server to stop.
func (s *Server) ShutdownRequested() <-chan struct{} {
	return s.shutdown
}

// Start listens on the unix socket and serves until the context is
// cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	// A previous unclean exit may have left the socket behind.
	if _, err := os.Stat(s.socketPath); err == nil {
		if err := os.Remove(s.socketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.socketPath, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.startTime = time.Now()
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.Lock()
			stopped := s.stopped
			s.mu.Unlock()
			if stopped {
				return nil
			}
			return err
		}
		go s.handleConn(ctx, conn)
	}
}

// Stop closes the listener and removes the socket.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	if s.listener != nil {
		_ = s.listener.Close()
	}
	_ = os.Remove(s.socketPath)
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			_ = encoder.Encode(Response{Success: false, Error: fmt.Sprintf("invalid request: %v", err), Code: CodeValidation})
			continue
		}

		if req.Operation == OpSubscribe {
			// The connection becomes a push stream and never goes back.
			s.streamEvents(ctx, conn, encoder, &req)
			return
		}

		resp := s.dispatch(ctx, &req)
		if err := encoder.Encode(resp); err != nil {
			return
		}
		if req.Operation == OpShutdown {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req *Request) Response {
	switch req.Operation {
	case OpPing:
		return okResponse(PingResponse{Message: "pong", Version: Version})
	case OpStatus:
		return s.handleStatus()
	case OpShutdown:
		select {
		case <-s.shutdown:
		default:
			close(s.shutdown)
		}
		return okResponse(map[string]string{"status": "shutting down"})

	case OpProjectCreate:
		return s.handleProjectCreate(ctx, req)
	case OpProjectList:
		return s.handleProjectList(ctx, req)
	case OpProjectUpdate:
		return s.handleProjectUpdate(ctx, req)
	case OpProjectDelete:
		return s.handleProjectDelete(ctx, req)

	case OpTaskCreate:
		return s.handleTaskCreate(ctx, req)
	case OpTaskUpdate:
		return s.handleTaskUpdate(ctx, req)
	case OpTaskDelete:
		return s.handleTaskDelete(ctx, req)
	case OpTaskClose:
		return s.handleTaskClose(ctx, req)
	case OpTaskReparent:
		return s.handleTaskReparent(ctx, req)
	case OpTaskTree:
		return s.handleTaskTree(ctx, req)

	case OpHabitIncrement:
		return s.handleHabitIncrement(ctx, req)
	case OpHabitList:
		return s.handleHabitList(ctx, req)
	case OpHabitReorder:
		return s.handleHabitReorder(ctx, req)
	case OpHabitProjectReorder:
		return s.handleHabitProjectReorder(ctx, req)
	case OpHabitLogs:
		return s.handleHabitLogs(ctx, req)

	case OpQueueGet:
		return s.handleQueueGet(ctx, req)
	case OpQueueReorder:
		return s.handleQueueReorder(ctx, req)
	case OpQueueList:
		return s.handleQueueList(ctx)
	case OpQueueDelete:
		return s.handleQueueDelete(ctx, req)

	case OpMoodRecord:
		return s.handleMoodRecord(ctx, req)

	case OpSessionStart:
		return s.handleSessionStart(ctx, req)
	case OpSessionEnd:
		return s.handleSessionEnd(ctx, req)
	case OpSessionList:
		return s.handleSessionList(ctx, req)
	}
	return Response{Success: false, Error: fmt.Sprintf("unknown operation: %s", req.Operation), Code: CodeValidation}
}

func (s *Server) handleStatus() Response {
	s.mu.Lock()
	start := s.startTime
	s.mu.Unlock()
	return okResponse(StatusResponse{
		Version:       Version,
		DatabasePath:  s.dbPath,
		SocketPath:    s.socketPath,
		PID:           os.Getpid(),
		UptimeSeconds: time.Since(start).Seconds(),
	})
}

// streamEvents forwards hub events for the requested topics to the
// client until it disconnects. Writes are serialized: the hub delivers
// per-subscription on a single goroutine each, so a mutex guards the
// shared encoder.
func (s *Server) streamEvents(ctx context.Context, conn net.Conn, encoder *json.Encoder, req *Request) {
	var args SubscribeArgs
	if len(req.Args) > 0 {
		if err := json.Unmarshal(req.Args, &args); err != nil {
			_ = encoder.Encode(Response{Success: false, Error: fmt.Sprintf("invalid subscribe args: %v", err), Code: CodeValidation})
			return
		}
	}
	topics := []notify.Topic{notify.TopicStatsUpdate, notify.TopicQueueUpdate}
	if len(args.Topics) > 0 {
		topics = topics[:0]
		for _, t := range args.Topics {
			topics = append(topics, notify.Topic(t))
		}
	}

	if err := encoder.Encode(Response{Success: true}); err != nil {
		return
	}

	var writeMu sync.Mutex
	done := make(chan struct{})
	var once sync.Once

	var unsubs []func()
	for _, topic := range topics {
		unsubs = append(unsubs, s.hub.Subscribe(topic, func(ev notify.Event) {
			writeMu.Lock()
			err := encoder.Encode(ev)
			writeMu.Unlock()
			if err != nil {
				once.Do(func() { close(done) })
			}
		}))
	}
	defer func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}()

	// Detect client disconnect: the subscribe stream is one-way, so any
	// read completing means the peer is gone.
	go func() {
		buf := make([]byte, 1)
		_, _ = conn.Read(buf)
		once.Do(func() { close(done) })
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
}

func okResponse(data interface{}) Response {
	raw, err := json.Marshal(data)
	if err != nil {
		return Response{Success: false, Error: fmt.Sprintf("failed to encode response: %v", err), Code: CodeInternal}
	}
	return Response{Success: true, Data: raw}
}

func errResponse(err error) Response {
	return Response{Success: false, Error: err.Error(), Code: errorCode(err)}
}

func badArgs(op string, err error) Response {
	return Response{Success: false, Error: fmt.Sprintf("invalid %s args: %v", op, err), Code: CodeValidation}
}

func decodeArgs(req *Request, into interface{}) error {
	if len(req.Args) == 0 {
		return fmt.Errorf("missing args")
	}
	return json.Unmarshal(req.Args, into)
}

func (s *Server) handleProjectCreate(ctx context.Context, req *Request) Response {
	var args ProjectCreateArgs
	if err := decodeArgs(req, &args); err != nil {
		return badArgs(req.Operation, err)
	}
	project := &types.Project{Name: args.Name, State: types.ProjectActive}
	if err := s.svc.CreateProject(ctx, project); err != nil {
		return errResponse(err)
	}
	return okResponse(project)
}

func (s *Server) handleProjectList(ctx context.Context, req *Request) Response {
	var args ProjectListArgs
	if len(req.Args) > 0 {
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return badArgs(req.Operation, err)
		}
	}
	projects, err := s.svc.ListProjects(ctx, types.ProjectState(args.State))
	if err != nil {
		return errResponse(err)
	}
	return okResponse(projects)
}

func (s *Server) handleProjectUpdate(ctx context.Context, req *Request) Response {
	var args ProjectUpdateArgs
	if err := decodeArgs(req, &args); err != nil {
		return badArgs(req.Operation, err)
	}
	var state *types.ProjectState
	if args.State != nil {
		st := types.ProjectState(*args.State)
		state = &st
	}
	if err := s.svc.UpdateProject(ctx, args.ID, args.Name, state); err != nil {
		return errResponse(err)
	}
	return okResponse(map[string]int64{"id": args.ID})
}

func (s *Server) handleProjectDelete(ctx context.Context, req *Request) Response {
	var args ProjectDeleteArgs
	if err := decodeArgs(req, &args); err != nil {
		return badArgs(req.Operation, err)
	}
	if err := s.svc.DeleteProject(ctx, args.ID); err != nil {
		return errResponse(err)
	}
	return okResponse(map[string]int64{"id": args.ID})
}

func (s *Server) handleTaskCreate(ctx context.Context, req *Request) Response {
	var args TaskCreateArgs
	if err := decodeArgs(req, &args); err != nil {
		return badArgs(req.Operation, err)
	}
	task := &types.Task{
		ProjectID:  args.ProjectID,
		ParentID:   args.ParentID,
		Title:      args.Title,
		Kind:       types.TaskKind(args.Kind),
		Recurring:  args.Recurring,
		Recurrence: types.Recurrence(args.Recurrence),
		Objective:  args.Objective,
	}
	if err := s.svc.CreateTask(ctx, task); err != nil {
		return errResponse(err)
	}
	return okResponse(task)
}

func (s *Server) handleTaskUpdate(ctx context.Context, req *Request) Response {
	var args TaskUpdateArgs
	if err := decodeArgs(req, &args); err != nil {
		return badArgs(req.Operation, err)
	}
	task, err := s.svc.UpdateTask(ctx, args.ID, args.Patch)
	if err != nil {
		return errResponse(err)
	}
	return okResponse(task)
}

func (s *Server) handleTaskDelete(ctx context.Context, req *Request) Response {
	var args TaskIDArgs
	if err := decodeArgs(req, &args); err != nil {
		return badArgs(req.Operation, err)
	}
	ids, err := s.svc.DeleteTaskRecursive(ctx, args.ID)
	if err != nil {
		return errResponse(err)
	}
	return okResponse(DeleteResponse{DeletedIDs: ids})
}

func (s *Server) handleTaskClose(ctx context.Context, req *Request) Response {
	var args TaskIDArgs
	if err := decodeArgs(req, &args); err != nil {
		return badArgs(req.Operation, err)
	}
	n, err := s.svc.CloseTaskRecursive(ctx, args.ID)
	if err != nil {
		return errResponse(err)
	}
	return okResponse(CloseResponse{Closed: n})
}

func (s *Server) handleTaskReparent(ctx context.Context, req *Request) Response {
	var args TaskReparentArgs
	if err := decodeArgs(req, &args); err != nil {
		return badArgs(req.Operation, err)
	}
	if err := s.svc.ReparentTask(ctx, args.ID, args.NewParentID); err != nil {
		return errResponse(err)
	}
	return okResponse(map[string]int64{"id": args.ID})
}

func (s *Server) handleTaskTree(ctx context.Context, req *Request) Response {
	var args TaskTreeArgs
	if err := decodeArgs(req, &args); err != nil {
		return badArgs(req.Operation, err)
	}
	tree, err := s.svc.GetTaskTree(ctx, args.ProjectID, args.RootTaskID)
	if err != nil {
		return errResponse(err)
	}
	return okResponse(tree)
}

func (s *Server) handleHabitIncrement(ctx context.Context, req *Request) Response {
	var args TaskIDArgs
	if err := decodeArgs(req, &args); err != nil {
		return badArgs(req.Operation, err)
	}
	task, err := s.svc.IncrementHabit(ctx, args.ID)
	if err != nil {
		return errResponse(err)
	}
	return okResponse(task)
}

func (s *Server) handleHabitList(ctx context.Context, req *Request) Response {
	var args HabitListArgs
	if len(req.Args) > 0 {
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return badArgs(req.Operation, err)
		}
	}
	habits, err := s.svc.Habits(ctx, args.ProjectID)
	if err != nil {
		return errResponse(err)
	}
	return okResponse(habits)
}

func (s *Server) handleHabitReorder(ctx context.Context, req *Request) Response {
	var args HabitReorderArgs
	if err := decodeArgs(req, &args); err != nil {
		return badArgs(req.Operation, err)
	}
	if err := s.svc.ReorderHabits(ctx, args.ProjectID, args.TaskIDs); err != nil {
		return errResponse(err)
	}
	return okResponse(map[string]int{"reordered": len(args.TaskIDs)})
}

func (s *Server) handleHabitProjectReorder(ctx context.Context, req *Request) Response {
	var args HabitProjectReorderArgs
	if err := decodeArgs(req, &args); err != nil {
		return badArgs(req.Operation, err)
	}
	if err := s.svc.ReorderHabitProjects(ctx, args.ProjectIDs); err != nil {
		return errResponse(err)
	}
	return okResponse(map[string]int{"reordered": len(args.ProjectIDs)})
}

func (s *Server) handleHabitLogs(ctx context.Context, req *Request) Response {
	var args HabitLogsArgs
	if err := decodeArgs(req, &args); err != nil {
		return badArgs(req.Operation, err)
	}
	var since time.Time
	if args.Since != "" {
		parsed, err := time.Parse(types.DateLayout, args.Since)
		if err != nil {
			return badArgs(req.Operation, err)
		}
		since = parsed
	}
	logs, err := s.svc.HabitLogs(ctx, args.TaskID, since)
	if err != nil {
		return errResponse(err)
	}
	return okResponse(logs)
}

func (s *Server) handleQueueGet(ctx context.Context, req *Request) Response {
	var args QueueArgs
	if len(req.Args) > 0 {
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return badArgs(req.Operation, err)
		}
	}
	view, err := s.svc.GetQueue(ctx, args.Name)
	if err != nil {
		return errResponse(err)
	}
	return okResponse(view)
}

func (s *Server) handleQueueReorder(ctx context.Context, req *Request) Response {
	var args QueueArgs
	if len(req.Args) > 0 {
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return badArgs(req.Operation, err)
		}
	}
	ordered, err := s.svc.ReorderQueue(ctx, args.Name)
	if err != nil {
		return errResponse(err)
	}
	return okResponse(ordered)
}

func (s *Server) handleQueueList(ctx context.Context) Response {
	queues, err := s.svc.ListQueues(ctx)
	if err != nil {
		return errResponse(err)
	}
	return okResponse(queues)
}

func (s *Server) handleQueueDelete(ctx context.Context, req *Request) Response {
	var args QueueArgs
	if err := decodeArgs(req, &args); err != nil {
		return badArgs(req.Operation, err)
	}
	if err := s.svc.DeleteQueue(ctx, args.Name); err != nil {
		return errResponse(err)
	}
	return okResponse(map[string]string{"name": args.Name})
}

func (s *Server) handleMoodRecord(ctx context.Context, req *Request) Response {
	var args MoodRecordArgs
	if err := decodeArgs(req, &args); err != nil {
		return badArgs(req.Operation, err)
	}
	if err := s.svc.RecordMood(ctx, args.ProjectID, args.Values); err != nil {
		return errResponse(err)
	}
	return okResponse(map[string]int{"recorded": len(args.Values)})
}

func (s *Server) handleSessionStart(ctx context.Context, req *Request) Response {
	var args SessionStartArgs
	if err := decodeArgs(req, &args); err != nil {
		return badArgs(req.Operation, err)
	}
	session, err := s.svc.StartSession(ctx, args.ProjectID)
	if err != nil {
		return errResponse(err)
	}
	return okResponse(session)
}

func (s *Server) handleSessionEnd(ctx context.Context, req *Request) Response {
	var args SessionEndArgs
	if err := decodeArgs(req, &args); err != nil {
		return badArgs(req.Operation, err)
	}
	if err := s.svc.EndSession(ctx, args.ID, args.ProjectID); err != nil {
		return errResponse(err)
	}
	return okResponse(map[string]string{"id": args.ID})
}

func (s *Server) handleSessionList(ctx context.Context, req *Request) Response {
	var args SessionListArgs
	if err := decodeArgs(req, &args); err != nil {
		return badArgs(req.Operation, err)
	}
	sessions, err := s.svc.ListSessions(ctx, args.ProjectID)
	if err != nil {
		return errResponse(err)
	}
	return okResponse(sessions)
}
