package store

import "github.com/redis/go-redis/v9"

// Every multi-key mutation is a Lua script so it executes atomically even
// with multiple server processes writing to the same room. Scripts return
// a table whose first element is a status tag; payload elements follow.

// admitScript appends a player to the roster unless the room is missing or
// full, and returns the updated roster.
// KEYS: room hash, players list. ARGV: player JSON.
var admitScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return {'missing'} end
local max = tonumber(redis.call('HGET', KEYS[1], 'maxPlayers'))
if redis.call('LLEN', KEYS[2]) >= max then return {'full'} end
redis.call('RPUSH', KEYS[2], ARGV[1])
local roster = redis.call('LRANGE', KEYS[2], 0, -1)
table.insert(roster, 1, 'ok')
return roster
`)

// popAdmitScript destructively pops exactly one waitlist entry and admits
// it. The pop and the push happen in one script, so concurrent callers can
// never admit the same entry twice.
// KEYS: room hash, players list, waitlist list, waitlist id set.
var popAdmitScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return {'missing'} end
local max = tonumber(redis.call('HGET', KEYS[1], 'maxPlayers'))
if redis.call('LLEN', KEYS[2]) >= max then return {'full'} end
local raw = redis.call('LPOP', KEYS[3])
if not raw then return {'empty'} end
local entry = cjson.decode(raw)
redis.call('SREM', KEYS[4], entry['socketId'])
redis.call('RPUSH', KEYS[2], raw)
return {'ok', raw}
`)

// removeScript removes the roster entry for a socket id. Host transfer is
// structural: the list head is always the host, so removing the head
// promotes the next-oldest player with no extra bookkeeping.
// KEYS: room hash, players list. ARGV: socket id.
var removeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return {'missing'} end
local roster = redis.call('LRANGE', KEYS[2], 0, -1)
for _, raw in ipairs(roster) do
  local p = cjson.decode(raw)
  if p['socketId'] == ARGV[1] then
    redis.call('LREM', KEYS[2], 1, raw)
    return {'ok', redis.call('LLEN', KEYS[2])}
  end
end
return {'absent', redis.call('LLEN', KEYS[2])}
`)

// enqueueScript adds one waitlist entry per socket id.
// KEYS: room hash, waitlist list, waitlist id set. ARGV: socket id, entry JSON.
var enqueueScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return {'missing'} end
if redis.call('SADD', KEYS[3], ARGV[1]) == 0 then return {'dup'} end
redis.call('RPUSH', KEYS[2], ARGV[2])
return {'ok'}
`)

// dequeueScript drops a parked entry, used when a waitlisted socket
// disconnects before admission.
// KEYS: waitlist list, waitlist id set. ARGV: socket id.
var dequeueScript = redis.NewScript(`
if redis.call('SREM', KEYS[2], ARGV[1]) == 0 then return {'absent'} end
local entries = redis.call('LRANGE', KEYS[1], 0, -1)
for _, raw in ipairs(entries) do
  local e = cjson.decode(raw)
  if e['socketId'] == ARGV[1] then
    redis.call('LREM', KEYS[1], 1, raw)
    break
  end
end
return {'ok'}
`)

// submitScript records one result per socket per round. The first write
// wins; later writes for the same socket report a duplicate instead of
// re-scoring. The sequence number doubles as the ranking tie-break.
// KEYS: results hash, seq counter, round order hash, global order hash.
// ARGV: socket id, submission JSON.
var submitScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 0 then return {'dup'} end
local seq = redis.call('INCR', KEYS[2])
redis.call('HSETNX', KEYS[3], ARGV[1], seq)
redis.call('HSETNX', KEYS[4], ARGV[1], seq)
return {'ok', seq}
`)

// highlightScript keeps the best similarity seen across the whole game.
// KEYS: highlight hash. ARGV: similarity, payload JSON.
var highlightScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'similarity')
if cur and tonumber(cur) >= tonumber(ARGV[1]) then return 0 end
redis.call('HSET', KEYS[1], 'similarity', ARGV[1], 'payload', ARGV[2])
return 1
`)
