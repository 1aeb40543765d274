package sqlinline

const QTaskInsert = `--sql 8f4d6034-df87-4b15-91e4-73a21a5a5cfd
insert into tasks (id, model, callback_token, state, input_json, next_poll_at)
values ($1, $2, $3, $4, $5, $6);
`

const QTaskByID = `--sql 895ee835-e855-4449-870e-0628a9e0f48f
select id, model, callback_token, state, input_json, result_json, fail_code, fail_message, created_at, updated_at, next_poll_at
from tasks
where id = $1;
`

const QTaskByCallbackToken = `--sql a887d0f4-8ac8-4a17-8996-d1338c840f78
select id, model, callback_token, state, input_json, result_json, fail_code, fail_message, created_at, updated_at, next_poll_at
from tasks
where callback_token = $1;
`

const QTaskClaimDue = `--sql 8af11eaf-a547-49ac-a6d4-18c6652e4afd
with due as (
    select id
    from tasks
    where state not in ('success', 'fail')
      and next_poll_at <= now()
    order by next_poll_at asc
    for update skip locked
    limit $1
),
claimed as (
    update tasks
    set next_poll_at = now() + make_interval(secs => $2), updated_at = now()
    where id in (select id from due)
    returning id, model, callback_token, state, input_json, result_json, fail_code, fail_message, created_at, updated_at, next_poll_at
)
select * from claimed;
`

const QTaskUpdateState = `--sql 1b065c84-763b-4f6e-842f-7cb7e6a4a12f
update tasks
set state = $2,
    result_json = coalesce($3, result_json),
    fail_code = $4,
    fail_message = $5,
    updated_at = now()
where id = $1
  and state not in ('success', 'fail');
`

const QTaskSchedulePoll = `--sql 87b399c4-e9c9-42e5-956b-48c2ebf857b7
update tasks
set next_poll_at = $2, updated_at = now()
where id = $1
  and state not in ('success', 'fail');
`
